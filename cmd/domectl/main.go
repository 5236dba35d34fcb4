// Command domectl drives a scripted sequence of domain hierarchy
// operations against domain.Database, the way cmd/mmubench drives a
// scripted sequence of sized accesses against an MMU: no interactive
// session, just a config file and a report at the end.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/avalonos/coreemu/domain"
	"github.com/avalonos/coreemu/internal/config"
	"github.com/avalonos/coreemu/internal/logging"
	"github.com/avalonos/coreemu/internal/propstore"
	"github.com/avalonos/coreemu/internal/ticktime"
)

var (
	scenarioPath string
	logPath      string
	levelName    string
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Runs a scripted domain-hierarchy transition scenario.\n")
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <scenario.json>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.StringVar(&logPath, "log", "", "log file path (stdout only if empty)")
	flag.StringVar(&levelName, "level", "INFO", "log level: DEBUG, INFO, WARN, or ERROR")
}

func checkFlags() error {
	if flag.NArg() != 1 {
		return errors.New("incorrect number of arguments")
	}
	scenarioPath = flag.Arg(0)
	return nil
}

// step is one line of a scenario script. Only the fields relevant to Op
// are read; the rest are ignored.
type step struct {
	Op          string `json:"op"`
	DomainID    uint16 `json:"domain_id"`
	Session     uint32 `json:"session_id"`
	TargetState int32  `json:"target_state"`
	Direction   string `json:"direction"`
	ObserveType uint8  `json:"observe_type"`
	AckErr      int32  `json:"ack_err"`
	PropVal     int32  `json:"prop_val"`
	Ticks       uint64 `json:"ticks"`
}

// scenario is the top-level shape of a domectl config file.
type scenario struct {
	HierarchyID uint8  `json:"hierarchy_id"`
	Steps       []step `json:"steps"`
}

func parseDir(s string) domain.Dir {
	if s == "children_first" {
		return domain.ChildrenFirst
	}
	return domain.ParentFirst
}

// cell is a domain.StatusCell that records its resolution for the
// runner to log; it has no guest process on the other end to wake up.
type cell struct {
	label string
	log   *slog.Logger
}

func (c *cell) Resolve(err domain.Err) {
	c.log.Info("resolved", "step", c.label, "result", err.String())
}

// reqCtx is a domain.Context backing a single synchronous call: the
// runner is both the caller and the only session in play, so Complete
// just logs rather than replying across a transport.
type reqCtx struct {
	session domain.SessionID
	label   string
	log     *slog.Logger
	last    domain.Err
}

func (c *reqCtx) Complete(err domain.Err) {
	c.last = err
	c.log.Info("completed", "step", c.label, "result", err.String())
}

func (c *reqCtx) Session() domain.SessionID { return c.session }

func run() error {
	level, err := logging.LevelFromString(levelName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	log, err := logging.Init(logPath, level)
	if err != nil {
		return fmt.Errorf("initializing logging: %v", err)
	}

	var sc scenario
	if err := config.Load(scenarioPath, &sc); err != nil {
		return fmt.Errorf("loading scenario: %v", err)
	}

	wheel := ticktime.New()
	props := propstore.New()
	mgr := domain.NewManager(wheel, props, log)
	srv := domain.NewServer(mgr)
	msrv := domain.NewManagerServer(mgr)

	if !mgr.AddHierarchyFromDatabase(sc.HierarchyID) {
		return fmt.Errorf("hierarchy %d is not in the database", sc.HierarchyID)
	}
	log.Info("hierarchy ready", "hierarchy_id", sc.HierarchyID)

	for i, st := range sc.Steps {
		label := fmt.Sprintf("%d:%s", i, st.Op)
		ctx := &reqCtx{session: domain.SessionID(st.Session), label: label, log: log}

		switch st.Op {
		case "join_hierarchy":
			msrv.JoinHierarchy(ctx, sc.HierarchyID)
		case "join_domain":
			srv.JoinDomain(ctx, sc.HierarchyID, st.DomainID)
		case "request_transition_notification":
			srv.RequestTransitionNotification(ctx, sc.HierarchyID)
		case "cancel_transition_notification":
			srv.CancelTransitionNotification(ctx, sc.HierarchyID)
		case "acknowledge":
			srv.Acknowledge(ctx, sc.HierarchyID, st.PropVal, domain.Err(st.AckErr))
		case "defer_acknowledge":
			srv.DeferAcknowledge(ctx, sc.HierarchyID, &cell{label: label, log: log})
		case "cancel_defer_acknowledge":
			srv.CancelDeferAcknowledge(ctx, sc.HierarchyID)
		case "request_domain_transition":
			msrv.RequestDomainTransition(ctx, sc.HierarchyID, st.DomainID, st.TargetState, parseDir(st.Direction), &cell{label: label, log: log})
		case "request_system_transition":
			msrv.RequestSystemTransition(ctx, sc.HierarchyID, st.TargetState, parseDir(st.Direction), &cell{label: label, log: log})
		case "cancel_transition":
			msrv.CancelTransition(ctx, sc.HierarchyID)
		case "observer_join":
			msrv.ObserverJoin(ctx, sc.HierarchyID, st.DomainID, domain.ObserveFlags(st.ObserveType))
		case "observer_start":
			msrv.ObserverStart(ctx, sc.HierarchyID)
		case "observer_notify":
			msrv.ObserverNotify(ctx, sc.HierarchyID, &cell{label: label, log: log})
		case "observer_cancel":
			msrv.ObserverCancel(ctx, sc.HierarchyID)
		case "advance":
			wheel.Advance(st.Ticks)
			log.Info("advanced clock", "step", label, "now", wheel.Now())
		default:
			return fmt.Errorf("step %d: unknown op %q", i, st.Op)
		}
	}

	failures, errCode := msrv.GetTransitionFailureCount(&reqCtx{log: log, label: "final-report"}, sc.HierarchyID)
	if errCode != domain.Success {
		return fmt.Errorf("reading failure count: %v", errCode)
	}
	log.Info("scenario complete", "hierarchy_id", sc.HierarchyID, "failures", failures)
	return nil
}

func main() {
	flag.Parse()
	if err := checkFlags(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}
