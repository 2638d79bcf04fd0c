package registry

import (
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"
)

// zkCreator is the slice of *zk.Conn EnsurePath needs; tests substitute a
// fake that reports NodeExists.
type zkCreator interface {
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
}

// ZkPathCreator backs PathCreator with a ZooKeeper ensemble, the registry
// Dubbo deployments conventionally use.
type ZkPathCreator struct {
	conn zkCreator
	c    *zk.Conn
}

// NewZkPathCreator connects to the ensemble.
func NewZkPathCreator(servers []string, sessionTimeout time.Duration) (*ZkPathCreator, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "registry: zookeeper connect")
	}
	return &ZkPathCreator{conn: conn, c: conn}, nil
}

// EnsurePath creates the path node by node. An already existing node is
// success: the backing store reports ErrNodeExists and registration stays
// idempotent.
func (z *ZkPathCreator) EnsurePath(path string) error {
	for _, p := range ancestors(path) {
		_, err := z.conn.Create(p, nil, 0, zk.WorldACL(zk.PermAll))
		if err != nil && !errors.Is(err, zk.ErrNodeExists) {
			return errors.Wrapf(err, "registry: create %s", p)
		}
	}
	return nil
}

// Close tears down the ZooKeeper session.
func (z *ZkPathCreator) Close() {
	if z.c != nil {
		z.c.Close()
	}
}
