package registry

import (
	"context"

	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdPathCreator backs PathCreator with etcd v3. etcd keys are flat, so a
// path maps to a single key and ensuring it is one idempotent put; no
// ancestor nodes are needed.
type EtcdPathCreator struct {
	client *clientv3.Client
}

// NewEtcdPathCreator connects to the given endpoints.
func NewEtcdPathCreator(endpoints []string) (*EtcdPathCreator, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
	})
	if err != nil {
		return nil, errors.Wrap(err, "registry: etcd connect")
	}
	return &EtcdPathCreator{client: c}, nil
}

// EnsurePath puts the key with an empty value. Re-putting an existing key
// succeeds, so repeated registration is a no-op.
func (e *EtcdPathCreator) EnsurePath(path string) error {
	_, err := e.client.Put(context.TODO(), path, "")
	return errors.Wrapf(err, "registry: put %s", path)
}

// Close releases the etcd client.
func (e *EtcdPathCreator) Close() error {
	return e.client.Close()
}
