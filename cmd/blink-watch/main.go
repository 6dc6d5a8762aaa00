// Command blink-watch tails the event stream of a running blinkd.
//
// Usage:
//
//	blink-watch -addr localhost:5000 -events blink_event,eye_state
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-blink/pkg/event"
)

func main() {
	addr := flag.String("addr", "localhost:5000", "blinkd host:port")
	only := flag.String("events", "", "Comma separated event names to print (default all)")
	signals := flag.Bool("signal", false, "Also print ear_value, earm_value and eye_landmarks")
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", u.String(), err)
		os.Exit(1)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	f := newFilter(*only, *signals)
	fmt.Printf("connected to %s\n", u.String())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				fmt.Fprintf(os.Stderr, "read: %v\n", err)
				os.Exit(1)
			}
			return
		}

		var ev event.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			fmt.Fprintf(os.Stderr, "bad message: %v\n", err)
			continue
		}
		if !f.allow(ev.Name) {
			continue
		}
		fmt.Println(format(time.Now(), ev))
	}
}

// filter decides which events are printed.
type filter struct {
	names   map[string]bool
	signals bool
}

func newFilter(only string, signals bool) filter {
	f := filter{signals: signals}
	for _, n := range strings.Split(only, ",") {
		if n = strings.TrimSpace(n); n != "" {
			if f.names == nil {
				f.names = make(map[string]bool)
			}
			f.names[n] = true
		}
	}
	return f
}

func (f filter) allow(name string) bool {
	if f.names != nil {
		return f.names[name]
	}
	switch name {
	case event.NameEARValue, event.NameEARMValue, event.NameEyeLandmarks:
		return f.signals
	}
	return true
}

// format renders one event as "15:04:05.000 name key=value ...".
func format(at time.Time, ev event.Event) string {
	var b strings.Builder
	b.WriteString(at.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(ev.Name)

	keys := make([]string, 0, len(ev.Payload))
	for k := range ev.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, ev.Payload[k])
	}
	return b.String()
}
