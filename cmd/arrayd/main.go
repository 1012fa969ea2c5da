// Command arrayd runs one instance of the array engine: it loads its
// configuration, wires the chunk cache, catalog, and operator
// registries through pkg/engine, and serves both the client-facing
// prepare/execute protocol and the inter-instance two-phase-commit
// protocol of spec.md §6 over separate goetty listeners.
package main

import (
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fagongzi/goetty/v2"
	"go.uber.org/zap"

	"github.com/arraydb/arraydb/pkg/cluster"
	"github.com/arraydb/arraydb/pkg/config"
	"github.com/arraydb/arraydb/pkg/engine"
	"github.com/arraydb/arraydb/pkg/logging"
	"github.com/arraydb/arraydb/pkg/netsvc"
	netclient "github.com/arraydb/arraydb/pkg/netsvc/client"
)

var configFile = flag.String("cfg", "", "toml configuration file (defaults built in if omitted)")

func main() {
	flag.Parse()

	opts, err := config.Load(*configFile)
	if err != nil {
		panic(err)
	}

	logger := logging.New(logging.FromOptions(opts))
	logging.Init(logger)
	defer logger.Sync()

	spillDir, err := os.MkdirTemp("", "arrayd-spill-")
	if err != nil {
		logger.Fatal("create spill directory", zap.Error(err))
	}
	defer os.RemoveAll(spillDir)

	eng, err := engine.New(opts.InstanceID, opts, spillDir)
	if err != nil {
		logger.Fatal("build engine context", zap.Error(err))
	}
	defer eng.Close()

	// This instance's own role as a two-phase-commit coordinator (pkg/
	// cluster's Coordinator driving netsvc.ClusterTransport) is exercised
	// by pkg/cluster's own tests; arrayd only needs the worker side wired
	// live here, since the client-facing entry point a coordinator would
	// run from (parsing PrepareQuery's query text into a logical plan)
	// is not implemented.
	executor := engine.NewExecutor(eng)

	clusterApp, err := netsvc.NewListener(opts.ClusterListenAddr, clusterDispatch(executor, eng.Publisher))
	if err != nil {
		logger.Fatal("start cluster listener", zap.Error(err))
	}
	if err := clusterApp.Start(); err != nil {
		logger.Fatal("run cluster listener", zap.Error(err))
	}
	defer clusterApp.Close()

	clientApp, err := newClientListener(opts.ListenAddr)
	if err != nil {
		logger.Fatal("start client listener", zap.Error(err))
	}
	if err := clientApp.Start(); err != nil {
		logger.Fatal("run client listener", zap.Error(err))
	}
	defer clientApp.Close()

	logger.Info("arrayd started",
		zap.Int32("instance_id", opts.InstanceID),
		zap.String("client_addr", opts.ListenAddr),
		zap.String("cluster_addr", opts.ClusterListenAddr),
	)
	waitForShutdownSignal()
	logger.Info("arrayd shutting down")
}

// clusterDispatch builds the inter-instance netsvc.Dispatch: one
// cluster.Worker per session (so its ack transport writes back on the
// session the request arrived on), shared across that session's
// messages via a session-keyed WorkerSession table.
func clusterDispatch(executor cluster.Executor, pub *cluster.Publisher) netsvc.Dispatch {
	var mu sync.Mutex
	sessions := make(map[goetty.IOSession]*engine.WorkerSession)

	return func(session goetty.IOSession, msg interface{}) error {
		mu.Lock()
		ws, ok := sessions[session]
		if !ok {
			ws = engine.NewWorkerSession(&cluster.Worker{
				Transport: &netsvc.WorkerClusterTransport{CoordinatorSession: session},
				Executor:  executor,
				Publisher: pub,
			})
			sessions[session] = ws
		}
		mu.Unlock()
		return ws.Handle(msg)
	}
}

// newClientListener builds the client-facing goetty application
// directly (rather than through netsvc.NewListener's one-message-at-a-
// time Dispatch) because each connection first runs a full login:/
// password: exchange before it may send any PrepareQuery/ExecuteQuery
// request.
func newClientListener(addr string) (goetty.NetApplication, error) {
	encoder, decoder := netsvc.NewCodec()
	return goetty.NewApplication(addr, func(session goetty.IOSession) error {
		receive := func() (interface{}, error) { return session.Read() }
		reply := func(m interface{}) error { return session.Write(m, goetty.WriteOptions{Flush: true}) }

		if err := netclient.RunAuthSequence(engine.AllowAllAuthenticator{}, receive, reply); err != nil {
			return err
		}
		for {
			msg, err := session.Read()
			if err != nil {
				return err
			}
			if err := reply(engine.HandleClientRequest(msg)); err != nil {
				return err
			}
		}
	}, goetty.WithAppSessionOptions(goetty.WithSessionCodec(encoder, decoder)))
}

func waitForShutdownSignal() {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
}
