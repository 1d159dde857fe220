package confmgr

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"reflect"
	"sync"
	"syscall"

	"github.com/BurntSushi/toml"
)

type watched struct {
	target reflect.Value
	wlock  WLocker
	newfn  func() any
}

func NewLocal(dir string) (ConfigManager, error) {
	return &localMgr{
		dir: dir,
		reg: map[string]*watched{},
	}, nil
}

type localMgr struct {
	dir string

	regmu sync.RWMutex
	reg   map[string]*watched
}

func (lm *localMgr) Run(ctx context.Context) error {
	go lm.run(ctx)
	return nil
}

func (lm *localMgr) run(ctx context.Context) {
	log.Info("local conf mgr start")
	defer log.Info("local conf mgr stop")

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)

	for {
		select {
		case <-ctx.Done():
			return

		case <-ch:
			lm.regmu.RLock()
			for fname, w := range lm.reg {
				lm.reload(fname, w)
			}
			lm.regmu.RUnlock()
		}
	}
}

func (lm *localMgr) Close(context.Context) error {
	return nil
}

func (lm *localMgr) cfgpath(key string) string {
	return filepath.Join(lm.dir, fmt.Sprintf("%s.cfg", key))
}

func (lm *localMgr) SetDefault(_ context.Context, key string, c any) error {
	fname := lm.cfgpath(key)
	_, err := os.Stat(fname)
	if err == nil {
		return fmt.Errorf("%s already exists", fname)
	}

	if !os.IsNotExist(err) {
		return fmt.Errorf("stat file %s: %w", fname, err)
	}

	content, err := ConfigComment(c)
	if err != nil {
		return fmt.Errorf("marshal default content: %w", err)
	}

	return os.WriteFile(fname, content, 0644)
}

func (lm *localMgr) Load(_ context.Context, key string, c any) error {
	fname := lm.cfgpath(key)
	data, err := os.ReadFile(fname)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", fname, err)
	}

	return unmarshal(data, c)
}

func (lm *localMgr) Watch(_ context.Context, key string, c any, wlock WLocker, newfn func() any) error {
	valC := reflect.ValueOf(c)
	typC := valC.Type()
	if typMaybe := reflect.TypeOf(newfn()); typC != typMaybe {
		return fmt.Errorf("config type not match, target=%s, newed=%s", typC, typMaybe)
	}

	if kind := typC.Kind(); kind != reflect.Ptr {
		return fmt.Errorf("config target should be pointer, got %s", kind)
	}

	fname := lm.cfgpath(key)

	lm.regmu.Lock()
	defer lm.regmu.Unlock()

	if _, ok := lm.reg[fname]; ok {
		return fmt.Errorf("duplicate watching file %s", fname)
	}

	lm.reg[fname] = &watched{
		target: valC,
		wlock:  wlock,
		newfn:  newfn,
	}

	log.Infof("will reload %s(%s) once receive reload sig", key, fname)

	return nil
}

func (lm *localMgr) reload(fname string, w *watched) {
	l := log.With("fname", fname)

	data, err := os.ReadFile(fname)
	if err != nil {
		l.Errorf("failed to load data: %s", err)
		return
	}

	obj := w.newfn()
	if err := unmarshal(data, obj); err != nil {
		l.Errorf("failed to unmarshal data: %s", err)
		return
	}

	w.wlock.Lock()
	w.target.Elem().Set(reflect.ValueOf(obj).Elem())
	w.wlock.Unlock()

	l.Info("config reloaded")
}

func unmarshal(data []byte, obj any) error {
	if un, ok := obj.(ConfigUnmarshaller); ok {
		return un.UnmarshalConfig(data)
	}

	return toml.Unmarshal(data, obj)
}
