// Package transport wraps one publish or subscribe socket behind a small
// adapter that handles connect-or-bind setup, raw frame I/O, topic
// subscription and teardown.
//
// Two variants share the same contract. SyncAdapter blocks the calling
// goroutine in Receive. AsyncAdapter takes a context.Context on every
// blocking call and buffers inbound frames in a bounded queue, dropping
// frames when the queue is full.
//
//	sub, err := transport.NewSyncAdapter(transport.RoleSubscribe)
//	if err != nil {
//		return err
//	}
//	defer sub.Close()
//
//	err = sub.Setup(transport.Endpoint{
//		Address: "tcp://*:5555",
//		Mode:    transport.ModeBind,
//		Topics:  []string{"sensor "},
//	})
//
//	for {
//		frame, err := sub.Receive()
//		if errors.Is(err, io.EOF) {
//			return nil
//		}
//		...
//	}
//
// # Shared contexts
//
// Each adapter lazily creates its own Context on first Setup and terminates
// it on Close. Several adapters can instead share one Context created with
// NewContext; they borrow it and leave termination to whoever holds the
// cancel function:
//
//	shared, terminate := transport.NewContext(transport.KindSync)
//	defer terminate()
//
//	pub, _ := transport.NewSyncAdapter(transport.RolePublish, transport.WithContext(shared))
//
// An adapter rejects a Context of the other concurrency kind at construction.
//
// The sockets are ZeroMQ PUB/SUB sockets from github.com/go-zeromq/zmq4 unless
// WithSocketFactory supplies another implementation of Socket.
package transport
