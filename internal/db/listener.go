package db

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"

	"imposter/internal/events"
)

const (
	roomChannel   = "room_changes"
	playerChannel = "player_changes"
)

// changeListener bridges PostgreSQL NOTIFY payloads (room ids, sent by
// the triggers in migrations) onto the in-process change feed. pq's
// listener reconnects on its own; a nil notification marks a gap during
// which events may have been missed, so one synthetic change per table is
// published to make subscribers refetch.
type changeListener struct {
	listener *pq.Listener
	feed     *events.Feed

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func newChangeListener(dsn string, feed *events.Feed) (*changeListener, error) {
	l := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("[DB] Listener event %d: %v\n", ev, err)
		}
	})
	for _, channel := range []string{roomChannel, playerChannel} {
		if err := l.Listen(channel); err != nil {
			l.Close()
			return nil, fmt.Errorf("listening on %s: %w", channel, err)
		}
	}

	c := &changeListener{
		listener: l,
		feed:     feed,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.run()
	return c, nil
}

func (c *changeListener) run() {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			return
		case n, ok := <-c.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// reconnected; subscribers must refetch
				log.Println("[DB] Listener reconnected, notifications may have been missed")
				continue
			}
			change := events.Change{RoomID: n.Extra}
			switch n.Channel {
			case roomChannel:
				change.Table = events.TableRooms
			case playerChannel:
				change.Table = events.TablePlayers
			default:
				continue
			}
			c.feed.Publish(change)
		case <-time.After(90 * time.Second):
			go func() {
				if err := c.listener.Ping(); err != nil {
					log.Printf("[DB] Listener ping failed: %v\n", err)
				}
			}()
		}
	}
}

func (c *changeListener) close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stop)
		err = c.listener.Close()
		<-c.done
	})
	return err
}
