package app

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"treegroup/internal/crypto"
	"treegroup/internal/domain"
	"treegroup/internal/member"
)

// DemoStep describes one observable result of RunDemo.
type DemoStep struct {
	Action  string
	Epoch   domain.Epoch
	Members int
	Detail  string
}

type demoMember struct {
	name string
	m    *member.Member
}

// RunDemo creates group id, adds members A, B and C, has A send "hello" to
// B, removes A and shows that A's last epoch secret cannot read what follows.
// Every commit is delivered to the current members concurrently.
func (e *Engine) RunDemo(ctx context.Context, id domain.GroupID) ([]DemoStep, error) {
	var steps []DemoStep
	info, err := e.Groups.CreateGroupWithID(ctx, id)
	if err != nil {
		return nil, err
	}
	steps = append(steps, DemoStep{Action: "create", Epoch: info.Epoch, Members: info.MemberCount})

	var members []demoMember
	for _, name := range []string{"A", "B", "C"} {
		m, res, err := e.demoAdd(ctx, id, name, members)
		if err != nil {
			return steps, fmt.Errorf("add %s: %w", name, err)
		}
		members = append(members, demoMember{name: name, m: m})
		steps = append(steps, DemoStep{
			Action:  "add " + name,
			Epoch:   res.Info.Epoch,
			Members: res.Info.MemberCount,
			Detail:  fmt.Sprintf("leaf %d", m.Leaf()),
		})
	}
	a, b, c := members[0].m, members[1].m, members[2].m
	defer func() {
		for _, dm := range members {
			dm.m.Destroy()
		}
	}()

	ct, err := a.Encrypt([]byte("hello"))
	if err != nil {
		return steps, err
	}
	msg, err := b.Decrypt(ct)
	if err != nil {
		return steps, fmt.Errorf("B decrypt: %w", err)
	}
	steps = append(steps, DemoStep{
		Action: "A -> B",
		Epoch:  msg.Epoch,
		Detail: fmt.Sprintf("B read %q from leaf %d", msg.Plaintext, msg.Sender),
	})

	p, err := e.Groups.ProposeRemove(id, a.Leaf())
	if err != nil {
		return steps, err
	}
	res, err := e.Groups.Commit(ctx, id, p)
	if err != nil {
		return steps, err
	}
	// A never learns of its removal and keeps its old epoch secret.
	if err := deliver(res.Commit, b, c); err != nil {
		return steps, err
	}
	steps = append(steps, DemoStep{Action: "remove A", Epoch: res.Info.Epoch, Members: res.Info.MemberCount})

	after, err := b.Encrypt([]byte("after removal"))
	if err != nil {
		return steps, err
	}
	if got, err := c.Decrypt(after); err != nil || !bytes.Equal(got.Plaintext, []byte("after removal")) {
		return steps, fmt.Errorf("C decrypt after removal: %w", err)
	}
	_, err = a.Decrypt(after)
	if err == nil {
		return steps, errors.New("removed member decrypted a later message")
	}
	steps = append(steps, DemoStep{Action: "A reads B", Epoch: a.Epoch(), Detail: "rejected: " + err.Error()})
	return steps, nil
}

func (e *Engine) demoAdd(
	ctx context.Context,
	id domain.GroupID,
	name string,
	current []demoMember,
) (*member.Member, domain.CommitResult, error) {
	signer, err := crypto.NewEphemeralSigner()
	if err != nil {
		return nil, domain.CommitResult{}, err
	}
	kp, pending, err := member.NewKeyPackage(rand.Reader, signer, []byte(name))
	if err != nil {
		return nil, domain.CommitResult{}, err
	}
	p, err := e.Groups.ProposeAdd(id, kp)
	if err != nil {
		pending.Discard()
		return nil, domain.CommitResult{}, err
	}
	res, err := e.Groups.Commit(ctx, id, p)
	if err != nil {
		pending.Discard()
		return nil, domain.CommitResult{}, err
	}
	ms := make([]*member.Member, len(current))
	for i, dm := range current {
		ms[i] = dm.m
	}
	if err := deliver(res.Commit, ms...); err != nil {
		pending.Discard()
		return nil, res, err
	}
	m, err := member.Join(pending, *res.Welcome, e.Groups.SignerKey())
	if err != nil {
		return nil, res, err
	}
	return m, res, nil
}

// deliver processes c at every member in parallel.
func deliver(c domain.Commit, ms ...*member.Member) error {
	var g errgroup.Group
	for _, m := range ms {
		m := m
		g.Go(func() error {
			if err := m.ProcessCommit(c); err != nil {
				return fmt.Errorf("leaf %d: %w", m.Leaf(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
