package command

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jindalujjwal0720/milan/internal/call"
	"github.com/jindalujjwal0720/milan/internal/client"
	"github.com/jindalujjwal0720/milan/internal/config"
	"github.com/jindalujjwal0720/milan/internal/protocol"
	"github.com/jindalujjwal0720/milan/internal/ui"
)

const connectTimeout = 10 * time.Second

// errConnectionLost is returned when the coordinator connection drops while
// a session is active. Every handler channel closes at that point.
var errConnectionLost = errors.New("lost connection to the coordinator")

// ConnectionContext bundles the live coordinator connection with its event
// handler and the identity the coordinator assigned us.
type ConnectionContext struct {
	Client  *client.Client
	Handler *client.Handler
	Config  *config.Client
	SelfID  string
}

// NewConnectionContext connects to the coordinator and waits for the
// assigned connection id.
func NewConnectionContext(cfg *config.Client) (*ConnectionContext, error) {
	c := client.New(cfg.ServerURL)
	if err := c.Connect(); err != nil {
		return nil, err
	}

	h := client.NewHandler(c)
	go h.Start()

	select {
	case id, ok := <-h.Connected:
		if !ok {
			return nil, errConnectionLost
		}
		return &ConnectionContext{Client: c, Handler: h, Config: cfg, SelfID: id}, nil
	case <-time.After(connectTimeout):
		c.Close()
		return nil, fmt.Errorf("timed out waiting for the coordinator to assign an id")
	}
}

func (c *ConnectionContext) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}

// callSession is the interactive in-room loop shared by host and join.
type callSession struct {
	ctx     *ConnectionContext
	mgr     *call.Manager
	room    string
	host    string
	members []string

	// Join requests awaiting the host's verdict, oldest first.
	pendingJoins []string
}

func runCallSession(ctx *ConnectionContext, snap protocol.RoomSnapshot, isHost bool) error {
	mgr := call.NewManager(snap.ID, ctx.Client, call.NewLinkFactory(ctx.Config), call.NewMediaFactory())
	defer mgr.Close()

	s := &callSession{
		ctx:     ctx,
		mgr:     mgr,
		room:    snap.ID,
		host:    snap.Host,
		members: snap.Members,
	}
	defer ctx.Client.Leave(s.room)

	if !isHost {
		// The joiner is the offerer: ask for the deferred call-start echo
		// and send offers once it arrives.
		ctx.Client.RequestCall()
	}

	s.printControls()

	input := make(chan string)
	go readInput(input)

	h := ctx.Handler
	for {
		select {
		case requester, ok := <-h.JoinPermission:
			if !ok {
				return errConnectionLost
			}
			s.pendingJoins = append(s.pendingJoins, requester)
			ui.PrintInfo(fmt.Sprintf("%s wants to join. Accept? [y/n]", requester))

		case id, ok := <-h.UserJoined:
			if !ok {
				return errConnectionLost
			}
			s.members = append(s.members, id)
			ui.PrintInfo(fmt.Sprintf("%s %s joined the room", ui.IconPeer, id))
			// Warm up the session; the joiner sends the offer.
			s.mgr.Session(id)

		case id, ok := <-h.HostChanged:
			if !ok {
				return errConnectionLost
			}
			s.host = id
			if id == ctx.SelfID {
				ui.PrintInfo(fmt.Sprintf("%s You are now the host", ui.IconHost))
			} else {
				ui.PrintInfo(fmt.Sprintf("%s %s is now the host", ui.IconHost, id))
			}

		case _, ok := <-h.CallStart:
			if !ok {
				return errConnectionLost
			}
			for _, id := range s.members {
				if id == ctx.SelfID {
					continue
				}
				if err := s.mgr.Call(id); err != nil {
					ui.PrintWarning(fmt.Sprintf("calling %s failed: %v", id, err))
				}
			}

		case sig, ok := <-h.Offer:
			if !ok {
				return errConnectionLost
			}
			if err := s.mgr.HandleOffer(sig.From, sig.Payload); err != nil {
				ui.PrintWarning(fmt.Sprintf("answering %s failed: %v", sig.From, err))
			}

		case sig, ok := <-h.Answer:
			if !ok {
				return errConnectionLost
			}
			if err := s.mgr.HandleAnswer(sig.From, sig.Payload); err != nil {
				ui.PrintWarning(fmt.Sprintf("applying answer from %s failed: %v", sig.From, err))
			}

		case sig, ok := <-h.Candidate:
			if !ok {
				return errConnectionLost
			}
			if err := s.mgr.HandleCandidate(sig.From, sig.Payload); err != nil {
				ui.PrintWarning(fmt.Sprintf("applying candidate from %s failed: %v", sig.From, err))
			}

		case _, ok := <-h.NotFound:
			if !ok {
				return errConnectionLost
			}
			ui.PrintWarning("The room no longer exists")
			return nil

		case line, ok := <-input:
			if !ok {
				return nil
			}
			if done := s.handleInput(line); done {
				return nil
			}
		}
	}
}

func (s *callSession) handleInput(line string) bool {
	line = strings.ToLower(strings.TrimSpace(line))

	if len(s.pendingJoins) > 0 && (line == "y" || line == "n") {
		requester := s.pendingJoins[0]
		s.pendingJoins = s.pendingJoins[1:]
		s.ctx.Client.Decide(requester, line == "y")
		if line == "y" {
			ui.PrintSuccess(fmt.Sprintf("Admitted %s", requester))
		} else {
			ui.PrintInfo(fmt.Sprintf("Denied %s", requester))
		}
		return false
	}

	switch line {
	case "a":
		on, err := s.mgr.ToggleAudio()
		s.printToggle(ui.IconMic, "Microphone", on, err)
	case "v":
		on, err := s.mgr.ToggleVideo()
		s.printToggle(ui.IconCamera, "Camera", on, err)
	case "p":
		ui.RenderMembers(s.members, s.host, s.ctx.SelfID)
	case "q":
		return true
	case "":
	default:
		s.printControls()
	}
	return false
}

func (s *callSession) printToggle(icon, device string, on bool, err error) {
	if err != nil {
		ui.PrintWarning(fmt.Sprintf("%s unavailable: %v", device, err))
		return
	}
	state := "off"
	if on {
		state = "on"
	}
	ui.PrintInfo(fmt.Sprintf("%s %s %s", icon, device, state))
}

func (s *callSession) printControls() {
	fmt.Println(ui.MutedStyle.Render("Controls: [a] toggle audio  [v] toggle video  [p] participants  [q] leave"))
}

func readInput(lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}
