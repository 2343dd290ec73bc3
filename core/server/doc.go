// Package server runs the diagnostics HTTP endpoint of a bus process:
// Prometheus metrics on /metrics and a liveness probe on /healthz.
//
// The server shuts down gracefully and plugs into errgroup:
//
//	reg := prometheus.NewRegistry()
//	collector := metrics.MustNew(reg)
//
//	srv := server.New(":9090",
//		server.WithGatherer(reg),
//		server.WithHealthCheck(func() error {
//			if !sub.Connected() {
//				return errors.New("subscriber not connected")
//			}
//			return nil
//		}),
//		server.WithLogger(log),
//	)
//
//	eg, ctx := errgroup.WithContext(ctx)
//	eg.Go(srv.Run(ctx))
//
// Without WithGatherer the default Prometheus registry is served.
package server
