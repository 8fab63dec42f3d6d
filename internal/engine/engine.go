// Package engine implements the command dispatcher and the five Redis type
// engines (string, hash, list, set, zset) over the transactional store: the
// Expiry/Type Guard prelude, retryCall's conflict-retry wrapper, and the
// programmatic boundary (Engine.Execute) an external RESP-framing
// collaborator calls into.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/duskdb/duskdb/internal/config"
	"github.com/duskdb/duskdb/internal/dberrors"
	"github.com/duskdb/duskdb/internal/engine/reply"
	"github.com/duskdb/duskdb/internal/logging"
	"github.com/duskdb/duskdb/internal/metrics"
	"github.com/duskdb/duskdb/internal/store"
	"github.com/duskdb/duskdb/internal/submeta"
)

// Engine is the command-execution boundary: args[0] is the command name
// (case-insensitive), reply.Reply is the closed response-shape set. A RESP
// framing layer (out of scope) serializes Reply values and deserializes
// incoming frames into args; DuskDB never touches a socket.
type Engine struct {
	store  *store.Store
	cfg    config.Config
	logger *slog.Logger
	picker *submeta.Picker
}

// New constructs an Engine over an opened Store.
func New(s *store.Store, cfg config.Config, logger *slog.Logger) *Engine {
	metrics.Init()
	if logger == nil {
		logger = logging.NewDiscard()
	}
	return &Engine{store: s, cfg: cfg, logger: logging.Tag(logger, logging.ComponentEngine), picker: submeta.NewPicker()}
}

type handlerFunc func(e *Engine, ctx context.Context, args [][]byte) reply.Reply

var commandTable = map[string]handlerFunc{}

func register(name string, fn handlerFunc) {
	commandTable[name] = fn
}

// Execute dispatches a single parsed command. args[0] is the command name.
func (e *Engine) Execute(ctx context.Context, args [][]byte) reply.Reply {
	if len(args) == 0 {
		return reply.Error(dberrors.ErrUnknownCommand.Error())
	}

	name := strings.ToUpper(string(args[0]))
	handler, ok := commandTable[name]
	if !ok {
		return reply.Error(dberrors.ErrUnknownCommand.Error())
	}

	return handler(e, ctx, args[1:])
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// errorReply maps any error from a command's transaction into an error
// reply carrying err.Error(). The engines return dberrors sentinels
// unwrapped, so for those the reply text is the sentinel's message.
func errorReply(err error) reply.Reply {
	return reply.Error(err.Error())
}
