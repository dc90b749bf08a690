// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

/*
Package supervisor runs the gateway's long-lived services under a suture v4
supervisor tree.

	RootSupervisor ("stox-gateway")
	├── BackendSupervisor ("backend-layer")
	│   └── backend.Manager (health probes and reconnection)
	├── WorkerSupervisor ("worker-layer")
	│   ├── cdn.Retrier (deferred invalidations)
	│   └── upload.Sweeper (orphaned objects)
	└── APISupervisor ("api-layer")
	    └── services.HTTPServerService

Crashed services restart with suture's backoff. Canceling the context
passed to Serve stops every layer; the HTTP server drains in-flight
requests within the shutdown timeout before main closes backend handles,
the event bus and Badger.

Supervisor events are logged through sutureslog with the zerolog-backed
slog handler from the logging package:

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddBackendService(manager)
	tree.AddWorkerService(retrier)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Addr(), 30*time.Second))
	err := tree.Serve(ctx)
*/
package supervisor
