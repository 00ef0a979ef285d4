/* Copyright 2024 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"log"
	"net/url"
	"strconv"
	"sync"

	"github.com/Comcast/voxmatch/sio"
	"github.com/Comcast/voxmatch/util"

	"github.com/gorilla/websocket"
)

// WebSocketCouplings dials a WebSocket server, reads requests from
// it, and writes each response back as a JSON text message.
type WebSocketCouplings struct {
	URL string

	in   chan *sio.Request
	out  chan *sio.Response
	done chan bool
	conn *websocket.Conn

	closeOnce sync.Once

	// wmu serializes writes, which gorilla/websocket requires.
	wmu sync.Mutex
}

func NewWebSocketCouplings(args []string) (*WebSocketCouplings, *flag.FlagSet) {
	c := &WebSocketCouplings{}
	fs := flag.NewFlagSet("ws", flag.ExitOnError)
	fs.StringVar(&c.URL, "url", "ws://localhost:8080", "Target URL for WebSocket server")
	if args == nil {
		return nil, fs
	}
	fs.Parse(args)
	return c, fs
}

// Start creates the WebSocket session and starts processing it.
func (c *WebSocketCouplings) Start(ctx context.Context) error {

	u, err := url.Parse(c.URL)
	if err != nil {
		return err
	}

	c.in = make(chan *sio.Request)
	c.out = make(chan *sio.Response)
	c.done = make(chan bool)

	log.Println("wsconnect", u.String())
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	c.conn = conn

	go c.readLoop(ctx)
	go c.writeLoop(ctx)

	return nil
}

func (c *WebSocketCouplings) readLoop(ctx context.Context) {
	defer c.closeDone()

	for n := 1; ; n++ {
		_, bs, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("ws ReadMessage error: %v", err)
			}
			return
		}
		if len(bs) == 0 {
			continue
		}
		util.Logf("heard %s", bs)

		req, err := decodeRequest(bs, "ws/"+strconv.Itoa(n))
		if err != nil {
			log.Printf("ignoring message %s: %v", util.Quote(string(bs), 60), err)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case c.in <- req:
		}
	}
}

func (c *WebSocketCouplings) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-c.out:
			c.wmu.Lock()
			err := c.conn.WriteJSON(r)
			c.wmu.Unlock()
			if err != nil {
				log.Printf("ws WriteJSON error: %v", err)
				return
			}
		}
	}
}

// closeDone closes the done channel, which tells the service that
// input is exhausted.
func (c *WebSocketCouplings) closeDone() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// IO just returns the channels that Start() initialized.
func (c *WebSocketCouplings) IO(ctx context.Context) (chan *sio.Request, chan *sio.Response, chan bool, error) {
	return c.in, c.out, c.done, nil
}

// Stop terminates the WebSocket connection.
func (c *WebSocketCouplings) Stop(ctx context.Context) error {
	log.Printf("Disconnecting")
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.wmu.Lock()
	c.conn.WriteMessage(websocket.CloseMessage, msg)
	c.wmu.Unlock()
	c.closeDone()
	return c.conn.Close()
}
