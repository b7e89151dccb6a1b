package types

// ProposalKind enumerates the changes a commit can apply.
type ProposalKind uint8

const (
	ProposalAdd ProposalKind = iota + 1
	ProposalRemove
	ProposalUpdate
)

// String returns the lowercase name of the kind.
func (k ProposalKind) String() string {
	switch k {
	case ProposalAdd:
		return "add"
	case ProposalRemove:
		return "remove"
	case ProposalUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Proposal is one pending membership or key change, bound to the epoch it
// was validated against.
type Proposal struct {
	Kind       ProposalKind
	GroupID    GroupID
	Epoch      Epoch
	KeyPackage *KeyPackage // add
	Leaf       LeafIndex   // remove, update
	Seed       []byte      // update: fresh leaf secret chosen by the member; wiped once committed
}
