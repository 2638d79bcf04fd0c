// Package registry publishes providers to a hierarchical coordination
// service.
//
// The core contract is PathCreator: anything that can ensure a path exists
// can back registration. Two implementations ship here, a ZooKeeper one
// (the conventional Dubbo registry) and an etcd one.
//
// A provider is published as
//
//	/dubbo/<service>/providers/<url-encoded provider URL>
//
// where the URL itself is percent-encoded so it fits in one path segment.
package registry

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

// PathCreator is the coordination-service contract: make sure the given
// path exists, creating ancestors as needed. Ensuring an existing path must
// succeed, so registration is idempotent.
type PathCreator interface {
	EnsurePath(path string) error
}

// Provider describes one published service instance.
type Provider struct {
	Host         string
	Port         int
	Service      string
	Methods      []string
	Application  string
	DubboVersion string
	Version      string // service version, default 1.0.0
	Revision     string // default 1.0.0
	Group        string // optional
	Timestamp    int64  // epoch ms; 0 means now
}

// pidGen feeds the pid query field. It is a monotonic counter rather than a
// real process id, matching what existing consumers expect to parse.
var pidGen atomic.Int64

// nowMillis is swapped out in tests.
var nowMillis = func() int64 {
	return time.Now().UnixMilli()
}

// URL renders the provider URL, consuming the next pid.
func (p Provider) URL() string {
	version := p.Version
	if version == "" {
		version = "1.0.0"
	}
	revision := p.Revision
	if revision == "" {
		revision = "1.0.0"
	}
	timestamp := p.Timestamp
	if timestamp == 0 {
		timestamp = nowMillis()
	}
	group := ""
	if p.Group != "" {
		group = "&group=" + p.Group
	}
	return fmt.Sprintf(
		"dubbo://%s:%d/%s?anyhost=true&application=%s&dubbo=%s%s&interface=%s&methods=%s&pid=%d&revision=%s&side=provider&timestamp=%d&version=%s",
		p.Host, p.Port, p.Service, p.Application, p.DubboVersion, group,
		p.Service, strings.Join(p.Methods, ","), pidGen.Add(1), revision, timestamp, version)
}

// Path renders the registry path for the provider, with the URL
// percent-encoded into a single path segment.
func (p Provider) Path() string {
	return "/dubbo/" + p.Service + "/providers/" + url.QueryEscape(p.URL())
}

// Register publishes the provider through the path creator.
func Register(pc PathCreator, p Provider) error {
	return pc.EnsurePath(p.Path())
}

// LocalIP finds the address this host would use to reach the outside, by
// opening a UDP "connection" that never sends anything.
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:53")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

// ancestors expands /a/b/c into /a, /a/b, /a/b/c for creators whose backing
// store wants every intermediate node created explicitly.
func ancestors(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	out := make([]string, 0, len(parts))
	for i := range parts {
		out = append(out, "/"+strings.Join(parts[:i+1], "/"))
	}
	return out
}
