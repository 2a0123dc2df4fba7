// Package router discovers the routes of a front-end project and renders
// them as type definitions.
//
// Discovery runs in three steps. A convention Adapter walks the project and
// yields raw RouteNode values, Normalize turns each routable node into a
// canonical RouteEntry, and a TableBuilder collects the entries while
// rejecting any two that would serve the same URL.
//
// # Conventions
//
//	next-app    app/ or src/app/, one page.tsx per folder
//	next-page   pages/ or src/pages/, one file per route
//	react       saferoute.routes.yaml, or route objects and <Route> elements
//	            in src/routes.tsx, src/router.tsx or src/App.tsx
//
// # Segment Syntax
//
// Dynamic segments are written with brackets on disk and as placeholders
// in canonical patterns:
//
//	[id]          → $id     (string)
//	[...slug]     → $slug   (string[])
//	[[...slug]]   → $slug   (string[] | undefined)
//	(marketing)   → removed (route group)
//
// React paths translate ":id" to [id] and "*" to [...splat]. A trailing
// "?" makes a segment optional and expands into one node per combination.
//
// # Usage
//
//	adapter, err := router.NewAdapter(router.ProjectNextApp, osfs.New(root), router.ScanOptions{})
//	b := router.NewTableBuilder()
//	for node, err := range adapter.Scan(ctx) {
//		// handle err
//		entry, err := router.Normalize(node)
//		// handle err
//		if entry != nil {
//			b.Add(entry)
//		}
//	}
//	table, err := b.Table()
//	out, err := router.Emit(table, router.EmitOptions{Mode: router.ModeFlat})
package router
