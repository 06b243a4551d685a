package rcontext

import (
	"context"

	"github.com/google/uuid"
	"github.com/mindvessel/bluebucket/common/config"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	keyLogger       contextKey = "bb.logger"
	keyConfig       contextKey = "bb.config"
	keyInvocationId contextKey = "bb.invocation"
)

// Initial returns a context bound to the currently loaded configuration.
func Initial() RequestContext {
	return WithConfig(context.Background(), config.Get())
}

// WithConfig builds a fresh invocation context around an explicit configuration.
func WithConfig(ctx context.Context, cfg *config.ArchiveConfig) RequestContext {
	id := uuid.NewString()
	return RequestContext{
		Context:      ctx,
		Log:          logrus.WithFields(logrus.Fields{"invocation": id}),
		Config:       cfg,
		InvocationId: id,
	}.populate()
}

type RequestContext struct {
	context.Context

	// These are also stored on the context object itself
	Log          *logrus.Entry         // bb.logger
	Config       *config.ArchiveConfig // bb.config
	InvocationId string                // bb.invocation
}

func (c RequestContext) populate() RequestContext {
	c.Context = context.WithValue(c.Context, keyLogger, c.Log)
	c.Context = context.WithValue(c.Context, keyConfig, c.Config)
	c.Context = context.WithValue(c.Context, keyInvocationId, c.InvocationId)
	return c
}

func (c RequestContext) ReplaceLogger(log *logrus.Entry) RequestContext {
	ctx := context.WithValue(c.Context, keyLogger, log)
	return RequestContext{
		Context:      ctx,
		Log:          log,
		Config:       c.Config,
		InvocationId: c.InvocationId,
	}
}

func (c RequestContext) LogWithFields(fields logrus.Fields) RequestContext {
	return c.ReplaceLogger(c.Log.WithFields(fields))
}
