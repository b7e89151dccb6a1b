package member

import "bytes"

// RetainedSecret returns a copy of the current epoch secret, standing in for
// an attacker who compromised the member at this epoch.
func (m *Member) RetainedSecret() []byte { return bytes.Clone(m.secret) }
