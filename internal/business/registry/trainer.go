package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"txcluster/internal/app/pkg/errorx"
	"txcluster/internal/app/pkg/logger"
)

// Locker 跨进程互斥，同一指纹同时只允许一个进程训练
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type nopLocker struct{}

func (nopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

// NopLocker 单进程部署时使用，进程内去重由 singleflight 完成
func NopLocker() Locker {
	return nopLocker{}
}

// TrainFunc 真正执行训练，返回的 Artifact 不需要填 Fingerprint / CreatedAt
type TrainFunc func(ctx context.Context) (*Artifact, error)

// Resolved 解析结果
type Resolved struct {
	Artifact *Artifact
	Reused   bool
}

// Trainer 命中仓库则复用，否则训练并写入仓库
type Trainer struct {
	registry Registry
	locker   Locker
	log      logger.Logger
	group    singleflight.Group
}

// NewTrainer 创建 Trainer，locker 为 nil 时使用 NopLocker
func NewTrainer(reg Registry, locker Locker, log logger.Logger) *Trainer {
	if locker == nil {
		locker = NopLocker()
	}
	return &Trainer{
		registry: reg,
		locker:   locker,
		log:      log,
	}
}

// LockKey 训练锁的 key
func LockKey(fingerprint string) string {
	return "txcluster:train:" + fingerprint
}

// Resolve 同一指纹的并发调用只会训练一次
// 共享的训练不随任何一个调用方取消，调用方取消时只有自己提前返回
func (t *Trainer) Resolve(ctx context.Context, fingerprint string, train TrainFunc) (*Resolved, error) {
	detached := context.WithoutCancel(ctx)
	ch := t.group.DoChan(fingerprint, func() (v interface{}, err error) {
		// DoChan 在独立 goroutine 中执行，panic 无法被调用方 recover
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("training panicked: %v", r)
			}
		}()
		return t.resolve(detached, fingerprint, train)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			t.log.DebugContext(ctx, "Training shared with concurrent caller", "fingerprint", fingerprint)
		}
		return res.Val.(*Resolved), nil
	}
}

func (t *Trainer) resolve(ctx context.Context, fingerprint string, train TrainFunc) (*Resolved, error) {
	// 1. 先查仓库
	a, err := t.lookup(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	if a != nil {
		t.log.InfoContext(ctx, "Model artifact reused", "fingerprint", fingerprint)
		return &Resolved{Artifact: a, Reused: true}, nil
	}

	// 2. 加锁后再查一次，别的进程可能刚写完
	release, err := t.locker.Acquire(ctx, LockKey(fingerprint))
	if err != nil {
		return nil, fmt.Errorf("acquire training lock failed: %w", err)
	}
	defer release()

	a, err = t.lookup(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	if a != nil {
		t.log.InfoContext(ctx, "Model artifact written by another process", "fingerprint", fingerprint)
		return &Resolved{Artifact: a, Reused: true}, nil
	}

	// 3. 训练并写入
	start := time.Now()
	a, err = train(ctx)
	if err != nil {
		return nil, err
	}
	a.Fingerprint = fingerprint
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if err := t.registry.Put(ctx, a); err != nil {
		return nil, fmt.Errorf("save artifact failed: %w", err)
	}

	t.log.InfoContext(ctx, "Model trained",
		"fingerprint", fingerprint,
		"train_rows", a.TrainRows,
		"members", a.Summarize().Members,
		"duration", time.Since(start).String(),
	)
	return &Resolved{Artifact: a, Reused: false}, nil
}

// lookup 未命中返回 (nil, nil)
func (t *Trainer) lookup(ctx context.Context, fingerprint string) (*Artifact, error) {
	a, err := t.registry.Get(ctx, fingerprint)
	if errors.Is(err, errorx.ErrArtifactNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact failed: %w", err)
	}
	return a, nil
}
