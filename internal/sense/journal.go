package sense

import (
	"context"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/urchin-core/internal/brain"
	"github.com/nerrad567/urchin-core/internal/infrastructure/config"
	"github.com/nerrad567/urchin-core/internal/process"
)

const unknownHost = "unknown"

// Login is the message of an os/login sensation.
type Login struct {
	Method       string `json:"method"`
	User         string `json:"user"`
	From         string `json:"from"`
	FromHostname string `json:"from_hostname"`
}

// PortScan is the message of an os/portscan sensation.
type PortScan struct {
	From         string `json:"from"`
	To           string `json:"to"`
	FromHostname string `json:"from_hostname"`
}

var (
	loginRx    = regexp.MustCompile(`Accepted (\S+) for (\S+) from (\S+) `)
	portscanRx = regexp.MustCompile(`scanlogd\[\d+\]: (\S+) to (\S+) `)
)

// Journal follows the system journal and reports logins and port scans.
type Journal struct {
	mind    Mind
	logger  Logger
	manager *process.Manager

	// LookupHost resolves an address to a hostname.
	LookupHost func(ctx context.Context, ip string) string

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewJournal creates the journal sense from the configured follow command.
func NewJournal(cfg config.JournalSenseConfig, mind Mind, logger Logger) *Journal {
	j := &Journal{
		mind:       mind,
		logger:     orNoop(logger),
		LookupHost: reverseLookup,
	}

	var binary string
	var args []string
	if len(cfg.Command) > 0 {
		binary, args = cfg.Command[0], cfg.Command[1:]
	}
	pc := process.DefaultConfig("journal", binary, args)
	pc.OnLine = j.Line
	pc.OnStop = func(err error) {
		if err != nil {
			j.logger.Warn("journal follower exited", "error", err)
		}
	}
	j.manager = process.NewManager(pc)
	j.manager.SetLogger(j.logger)
	return j
}

func (j *Journal) Name() string { return "journal" }

// Stats reports the follower process.
func (j *Journal) Stats() process.Stats {
	return j.manager.Stats()
}

// Start launches the follower.
func (j *Journal) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		j.logger.Warn("journal already started")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := j.manager.Start(ctx); err != nil {
		cancel()
		j.logger.Error("starting journal follower", "error", err)
		return
	}
	j.cancel = cancel
}

// Stop asks the follower to terminate.
func (j *Journal) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		j.cancel()
	}
}

// Wait blocks until the follower has exited.
func (j *Journal) Wait() {
	if done := j.manager.Done(); done != nil {
		<-done
	}
	j.mu.Lock()
	j.cancel = nil
	j.mu.Unlock()
}

// Line examines one journal line.
func (j *Journal) Line(line string) {
	if s, ok := j.Parse(line); ok {
		j.logger.Debug("journal match", "topic", s.Topic, "line", strings.TrimSpace(line))
		j.mind.Experience(s)
	}
}

// Parse turns a journal line into a sensation if it is one of interest.
func (j *Journal) Parse(line string) (brain.Sensation, bool) {
	if m := loginRx.FindStringSubmatch(line); m != nil {
		return brain.NewJSONSensation(j.mind.Topic("os/login"), Login{
			Method:       m[1],
			User:         m[2],
			From:         m[3],
			FromHostname: j.hostname(m[3]),
		}), true
	}
	if m := portscanRx.FindStringSubmatch(line); m != nil {
		return brain.NewJSONSensation(j.mind.Topic("os/portscan"), PortScan{
			From:         m[1],
			To:           m[2],
			FromHostname: j.hostname(m[1]),
		}), true
	}
	return brain.Sensation{}, false
}

func (j *Journal) hostname(ip string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return j.LookupHost(ctx, ip)
}

func reverseLookup(ctx context.Context, ip string) string {
	// scanlogd reports host:port.
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	names, err := net.DefaultResolver.LookupAddr(ctx, ip)
	if err != nil || len(names) == 0 {
		return unknownHost
	}
	return strings.TrimSuffix(names[0], ".")
}
