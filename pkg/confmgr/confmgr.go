package confmgr

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/coho-storage/blobwarden/pkg/logging"
)

var log = logging.New("confmgr")

var _ ConfigManager = (*localMgr)(nil)

// ConfigUnmarshaller overrides the default toml decoding for a config target.
type ConfigUnmarshaller interface {
	UnmarshalConfig([]byte) error
}

type RLocker interface {
	sync.Locker
}

type WLocker interface {
	sync.Locker
}

type ConfigManager interface {
	Load(ctx context.Context, key string, c any) error
	SetDefault(ctx context.Context, key string, c any) error
	Watch(ctx context.Context, key string, c any, wlock WLocker, newfn func() any) error
	Run(ctx context.Context) error
	Close(ctx context.Context) error
}

// ConfigComment renders a config value as a fully commented-out toml
// example, with section headers left active.
func ConfigComment(t any) ([]byte, error) {
	buf := new(bytes.Buffer)
	_, _ = buf.WriteString("# Default config:\n")
	e := toml.NewEncoder(buf)
	e.Indent = ""
	if err := e.Encode(t); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	b := buf.Bytes()
	b = bytes.ReplaceAll(b, []byte("\n"), []byte("\n#"))
	b = bytes.ReplaceAll(b, []byte("#["), []byte("["))

	return b, nil
}
