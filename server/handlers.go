package main

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/blockpipe"
	"github.com/meikuraledutech/blockpipe/catalog"
	"github.com/meikuraledutech/blockpipe/compiler"
)

type blockRequest struct {
	Stage string `json:"stage"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

type linkRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Socket string `json:"socket"`
}

type finalizeRequest struct {
	Blocks []string `json:"blocks"`
}

type blockResponse struct {
	ID      string   `json:"id"`
	Kind    string   `json:"kind"`
	Sockets []string `json:"sockets,omitempty"`
}

type probeResponse struct {
	Inserted bool     `json:"inserted"`
	Sockets  []string `json:"sockets"`
}

type server struct {
	store   blockpipe.Store
	catalog *catalog.Catalog
	log     *slog.Logger
	metrics *metrics
	locks   *keyedLocks
}

func newApp(store blockpipe.Store, cat *catalog.Catalog, logger *slog.Logger) *fiber.App {
	s := &server{store: store, catalog: cat, log: logger, metrics: newMetrics(), locks: newKeyedLocks()}
	app := fiber.New()

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if err := store.CreateSchema(c.Context()); err != nil {
			return s.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if err := store.DropSchema(c.Context()); err != nil {
			return s.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Catalog ───────────────────────────────────────────────────────
	app.Get("/catalog", func(c fiber.Ctx) error {
		return c.JSON(cat.Stages())
	})

	app.Get("/metrics", s.metrics.handler)

	// ── Workspaces (bulk) ─────────────────────────────────────────────
	app.Get("/workspaces", func(c fiber.Ctx) error {
		ids, err := store.ListGraphs(c.Context())
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(ids)
	})

	app.Post("/workspaces", func(c fiber.Ctx) error {
		var g blockpipe.Graph
		if len(c.Body()) > 0 {
			if err := c.Bind().JSON(&g); err != nil {
				return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
			}
		}
		if err := g.Prepare(); err != nil {
			return s.fail(c, err)
		}
		ws, err := blockpipe.Import(&g, s.options()...)
		if err != nil {
			return s.fail(c, err)
		}
		saved, err := store.SaveGraph(c.Context(), ws.Export())
		if err != nil {
			return s.fail(c, err)
		}
		return c.Status(201).JSON(saved)
	})

	app.Get("/workspaces/:id", func(c fiber.Ctx) error {
		g, err := store.GetGraph(c.Context(), c.Params("id"))
		if err != nil {
			return s.fail(c, err)
		}
		if g == nil {
			return c.Status(404).JSON(fiber.Map{"error": "workspace not found"})
		}
		return c.JSON(g)
	})

	app.Delete("/workspaces/:id", func(c fiber.Ctx) error {
		if err := store.DeleteGraph(c.Context(), c.Params("id")); err != nil {
			return s.fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Get("/workspaces/:id/compile", func(c fiber.Ctx) error {
		ws, err := s.load(c)
		if err != nil {
			return s.fail(c, err)
		}
		mode := compiler.Pretty
		if compact, _ := strconv.ParseBool(c.Query("compact")); compact {
			mode = compiler.Compact
		}
		s.metrics.compilations.WithLabelValues(mode.String()).Inc()
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.SendString(compiler.Compile(ws, mode))
	})

	// ── Blocks ────────────────────────────────────────────────────────
	app.Post("/workspaces/:id/blocks", func(c fiber.Ctx) error {
		var req blockRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		var resp blockResponse
		err := s.edit(c, func(ws *blockpipe.Workspace) error {
			var b *blockpipe.Block
			if req.Stage != "" {
				var err error
				if b, err = ws.AddStage(req.Stage); err != nil {
					return err
				}
			} else {
				b = ws.AddArgument(req.Key, req.Value)
			}
			resp = blockResponse{ID: b.ID, Kind: b.Kind.String(), Sockets: b.SocketIDs()}
			return nil
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.Status(201).JSON(resp)
	})

	app.Put("/workspaces/:id/blocks/:block", func(c fiber.Ctx) error {
		var req blockRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		err := s.edit(c, func(ws *blockpipe.Workspace) error {
			return ws.SetArgument(c.Params("block"), req.Key, req.Value)
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Delete("/workspaces/:id/blocks/:block", func(c fiber.Ctx) error {
		err := s.edit(c, func(ws *blockpipe.Workspace) error {
			return ws.Delete(c.Params("block"))
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.SendStatus(204)
	})

	// ── Links ─────────────────────────────────────────────────────────
	app.Post("/workspaces/:id/links", func(c fiber.Ctx) error {
		var req linkRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		err := s.edit(c, func(ws *blockpipe.Workspace) error {
			if req.Socket == "" {
				return ws.Chain(req.From, req.To)
			}
			return ws.Attach(req.From, req.Socket, req.To)
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Delete("/workspaces/:id/links/:block", func(c fiber.Ctx) error {
		err := s.edit(c, func(ws *blockpipe.Workspace) error {
			if err := ws.Detach(c.Params("block")); err != nil {
				return err
			}
			return ws.Unchain(c.Params("block"))
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.SendStatus(204)
	})

	// ── Drag events ───────────────────────────────────────────────────
	app.Post("/workspaces/:id/probe", func(c fiber.Ctx) error {
		var conn blockpipe.Connection
		if err := c.Bind().JSON(&conn); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		resp := probeResponse{Sockets: []string{}}
		err := s.edit(c, func(ws *blockpipe.Workspace) error {
			resp.Inserted = ws.Probe(conn)
			if b, ok := ws.Block(conn.BlockID); ok {
				resp.Sockets = b.SocketIDs()
			}
			return nil
		})
		if err != nil {
			return s.fail(c, err)
		}
		if resp.Inserted {
			s.metrics.probeInsertions.Inc()
		}
		return c.JSON(resp)
	})

	app.Post("/workspaces/:id/finalize", func(c fiber.Ctx) error {
		var req finalizeRequest
		if len(c.Body()) > 0 {
			if err := c.Bind().JSON(&req); err != nil {
				return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
			}
		}
		removed := 0
		err := s.edit(c, func(ws *blockpipe.Workspace) error {
			removed = ws.Finalize(req.Blocks...)
			return nil
		})
		if err != nil {
			return s.fail(c, err)
		}
		s.metrics.finalizedSockets.Add(float64(removed))
		return c.JSON(fiber.Map{"removed": removed})
	})

	return app
}

func (s *server) options() []blockpipe.Option {
	return []blockpipe.Option{blockpipe.WithCatalog(s.catalog), blockpipe.WithLogger(s.log)}
}

// load restores the workspace named by the :id route param.
func (s *server) load(c fiber.Ctx) (*blockpipe.Workspace, error) {
	g, err := s.store.GetGraph(c.Context(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, blockpipe.ErrGraphNotFound
	}
	return blockpipe.Import(g, s.options()...)
}

// edit loads the workspace, applies fn and saves the result. Nothing is saved
// when fn fails. Edits of one workspace run one at a time so concurrent
// requests don't overwrite each other.
func (s *server) edit(c fiber.Ctx, fn func(ws *blockpipe.Workspace) error) error {
	unlock := s.locks.lock(strings.Clone(c.Params("id")))
	defer unlock()

	ws, err := s.load(c)
	if err != nil {
		return err
	}
	if err := fn(ws); err != nil {
		return err
	}
	_, err = s.store.SaveGraph(c.Context(), ws.Export())
	return err
}

// fail maps domain errors to HTTP responses.
func (s *server) fail(c fiber.Ctx, err error) error {
	status := 500
	switch {
	case errors.Is(err, blockpipe.ErrGraphNotFound),
		errors.Is(err, blockpipe.ErrBlockNotFound),
		errors.Is(err, blockpipe.ErrSocketNotFound):
		status = 404
	case errors.Is(err, blockpipe.ErrCycleDetected),
		errors.Is(err, blockpipe.ErrUnknownRef),
		errors.Is(err, blockpipe.ErrNotStage),
		errors.Is(err, blockpipe.ErrNotArgument),
		errors.Is(err, blockpipe.ErrChainOccupied),
		errors.Is(err, blockpipe.ErrChainForbidden),
		errors.Is(err, blockpipe.ErrUnknownStage),
		errors.Is(err, blockpipe.ErrNotDraggable):
		status = 422
	}
	if status == 500 {
		s.log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	} else {
		s.log.Warn("request rejected", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
