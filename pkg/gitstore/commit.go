package gitstore

import (
	"context"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/warpgraph/warp/pkg/objstore"
)

// identity is the git author/committer signature stamped on every commit
// warp writes. Writer identity already lives in the commit message trailers
// (warp-writer, warp-lamport, ...); the signature's name and email are
// constant, so configured git identities never enter the commit. Its time
// comes from the store's clock (time.Now unless replaced with SetClock).
func (s *Store) identity() *git2go.Signature {
	return &git2go.Signature{
		Name:  "warp",
		Email: "warp@localhost",
		When:  s.nowFunc(),
	}
}

// CommitNode implements objstore.Store by writing a parents-only node
// against the empty tree, used for coverage anchors.
func (s *Store) CommitNode(ctx context.Context, n objstore.NewNode) (objstore.Hash, error) {
	emptyTree, err := s.emptyTree(ctx)
	if err != nil {
		return objstore.Hash{}, err
	}

	return s.commit(n.Message, n.Parents, emptyTree)
}

// CommitNodeWithTree implements objstore.Store.
func (s *Store) CommitNodeWithTree(_ context.Context, n objstore.NewNodeWithTree) (objstore.Hash, error) {
	return s.commit(n.Message, n.Parents, n.Tree)
}

func (s *Store) commit(message string, parents []objstore.Hash, tree objstore.Hash) (objstore.Hash, error) {
	t, err := s.repo.LookupTree(hashToOid(tree))
	if err != nil {
		return objstore.Hash{}, wrapf("lookup tree for commit", err)
	}
	defer t.Free()

	parentCommits := make([]*git2go.Commit, 0, len(parents))

	defer func() {
		for _, p := range parentCommits {
			p.Free()
		}
	}()

	for _, p := range parents {
		c, err := s.repo.LookupCommit(hashToOid(p))
		if err != nil {
			return objstore.Hash{}, wrapf("lookup parent commit", err)
		}

		parentCommits = append(parentCommits, c)
	}

	sig := s.identity()

	oid, err := s.repo.CreateCommit("", sig, sig, message, t, parentCommits...)
	if err != nil {
		return objstore.Hash{}, wrapf("create commit", err)
	}

	return oidToHash(oid), nil
}

// GetNodeInfo implements objstore.Store.
func (s *Store) GetNodeInfo(_ context.Context, commit objstore.Hash) (objstore.NodeInfo, error) {
	c, err := s.repo.LookupCommit(hashToOid(commit))
	if err != nil {
		if git2go.IsErrorCode(err, git2go.ErrorCodeNotFound) {
			return objstore.NodeInfo{}, objstore.ErrNotFound
		}

		return objstore.NodeInfo{}, wrapf("lookup commit", err)
	}
	defer c.Free()

	parents := make([]objstore.Hash, 0, c.ParentCount())
	for i := uint(0); i < c.ParentCount(); i++ {
		parents = append(parents, oidToHash(c.ParentId(i)))
	}

	return objstore.NodeInfo{
		Message: c.Message(),
		Parents: parents,
		Tree:    oidToHash(c.TreeId()),
		Date:    c.Committer().When,
	}, nil
}

// emptyTree returns the hash of the empty tree, creating it on first use.
// Coverage anchors merge writer tips without carrying a payload of their
// own, so they point at this tree rather than nil.
func (s *Store) emptyTree(ctx context.Context) (objstore.Hash, error) {
	return s.WriteTree(ctx, nil)
}
