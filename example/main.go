package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/meikuraledutech/blockpipe"
	"github.com/meikuraledutech/blockpipe/catalog"
	"github.com/meikuraledutech/blockpipe/compiler"
	"github.com/meikuraledutech/blockpipe/memory"
)

func main() {
	ctx := context.Background()

	// Swap memory.New() for postgres.New(pool) or redis.New(opts) to persist for real.
	var store blockpipe.Store = memory.New()
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}

	ws := blockpipe.NewWorkspace("example", blockpipe.WithCatalog(catalog.Default()))

	// ── Build: tcp => xor ─────────────────────────────────────────────
	tcp, err := ws.AddStage("tcp")
	if err != nil {
		log.Fatalf("add tcp: %v", err)
	}
	xor, err := ws.AddStage("xor")
	if err != nil {
		log.Fatalf("add xor: %v", err)
	}
	if err := ws.Chain(tcp.ID, xor.ID); err != nil {
		log.Fatalf("chain: %v", err)
	}
	key := ws.AddArgument("", "secret")

	// ── Drag the key into xor ─────────────────────────────────────────
	drag, err := ws.BeginDrag(key.ID)
	if err != nil {
		log.Fatalf("begin drag: %v", err)
	}
	target := blockpipe.Connection{BlockID: xor.ID, SocketID: "arg_0"}
	opened := drag.Hover(target)
	fmt.Printf("hover opened a socket: %v, sockets: %v\n", opened, xor.SocketIDs())

	if err := drag.End(&target); err != nil {
		log.Fatalf("drop: %v", err)
	}
	fmt.Printf("after drop, sockets: %v\n", xor.SocketIDs())

	// ── Save and reload ───────────────────────────────────────────────
	saved, err := store.SaveGraph(ctx, ws.Export())
	if err != nil {
		log.Fatalf("save: %v", err)
	}
	fmt.Println("\nworkspace saved:")
	printJSON(saved)

	g, err := store.GetGraph(ctx, "example")
	if err != nil {
		log.Fatalf("get: %v", err)
	}
	restored, err := blockpipe.Import(g, blockpipe.WithCatalog(catalog.Default()))
	if err != nil {
		log.Fatalf("import: %v", err)
	}

	// ── Compile ───────────────────────────────────────────────────────
	fmt.Println("\npretty:")
	fmt.Print(compiler.Compile(restored, compiler.Pretty))
	fmt.Println("\ncompact:")
	fmt.Println(compiler.Compile(restored, compiler.Compact))

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := store.DeleteGraph(ctx, "example"); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("\nworkspace deleted")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
