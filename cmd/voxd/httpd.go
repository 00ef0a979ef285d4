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
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Comcast/voxmatch/sio"

	"golang.org/x/net/netutil"
)

// HTTPDCouplings implements an sio.Couplings based on a HTTP service.
//
// The HTTP API supports synchronous parsing of an utterance (/parse),
// which returns the Response directly, and asynchronous submission
// (/in).  Responses to asynchronous requests accumulate in a History
// that clients can long-poll (/history).
type HTTPDCouplings struct {
	Port        string
	MaxConns    int
	HistorySize int

	in   chan *sio.Request
	out  chan *sio.Response
	done chan bool

	hist *History
	srv  *http.Server

	stop sync.Once

	sync.RWMutex
	svc *sio.Service
	n   int
}

// NewHTTPDCouplings parses the command-line flags to generate an HTTPDCouplings.
//
// To help with command-line usage reporting, this function also
// returns the flag.FlagSet used to process the command-line args.
func NewHTTPDCouplings(args []string) (*HTTPDCouplings, *flag.FlagSet) {
	c := &HTTPDCouplings{}
	fs := flag.NewFlagSet("httpd", flag.ExitOnError)
	fs.StringVar(&c.Port, "port", "localhost:8080", "Port (host:port) for HTTP service")
	fs.IntVar(&c.MaxConns, "max-conns", 256, "Maximum number of simultaneous connections")
	fs.IntVar(&c.HistorySize, "history", 1024, "Number of asynchronous responses to retain")
	if args == nil {
		return nil, fs
	}
	fs.Parse(args)
	return c, fs
}

// SetService gives the couplings the Service that /parse uses.
func (c *HTTPDCouplings) SetService(svc *sio.Service) {
	c.Lock()
	c.svc = svc
	c.Unlock()
}

func (c *HTTPDCouplings) service() *sio.Service {
	c.RLock()
	defer c.RUnlock()
	return c.svc
}

func (c *HTTPDCouplings) nextId() string {
	c.Lock()
	c.n++
	n := c.n
	c.Unlock()
	return "http/" + strconv.Itoa(n)
}

func (c *HTTPDCouplings) init() {
	if c.HistorySize <= 0 {
		c.HistorySize = 1024
	}
	c.in = make(chan *sio.Request)
	c.out = make(chan *sio.Response)
	c.done = make(chan bool)
	c.hist = NewHistory(c.HistorySize)
}

// Start creates the HTTP service and starts processing it.
func (c *HTTPDCouplings) Start(ctx context.Context) error {
	c.init()

	l, err := net.Listen("tcp", c.Port)
	if err != nil {
		return err
	}
	if 0 < c.MaxConns {
		l = netutil.LimitListener(l, c.MaxConns)
	}

	c.srv = &http.Server{
		Handler:        c.handler(ctx),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   70 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("Starting HTTP service on %s", c.Port)
		if err := c.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Serve error %v", err)
		}
	}()

	// Accumulate responses for clients who want to get them
	// asynchronously.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-c.out:
				c.hist.Add(r)
			}
		}
	}()

	return nil
}

func puntf(w http.ResponseWriter, status int, format string, args ...interface{}) {
	s := fmt.Sprintf(format, args...)
	log.Println(s)

	msg := map[string]interface{}{
		"error": s,
	}
	js, err := json.Marshal(&msg)
	if err != nil {
		js = []byte(s)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, "%s\n", js)
}

func reply(w http.ResponseWriter, x interface{}) {
	js, err := json.Marshal(x)
	if err != nil {
		puntf(w, http.StatusInternalServerError, "Marshal error %v on %#v", err, x)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, "%s\n", js)
}

// request gets a Request from the "u" parameter or from the body,
// which can be a JSON Request or plain text.
func (c *HTTPDCouplings) request(r *http.Request) (*sio.Request, error) {
	var req *sio.Request
	if u := r.FormValue("u"); u != "" {
		req = &sio.Request{
			Id:        c.nextId(),
			Utterance: u,
		}
	} else {
		bs, err := ioutil.ReadAll(http.MaxBytesReader(nil, r.Body, 1<<16))
		if err != nil {
			return nil, err
		}
		if req, err = decodeRequest(bs, c.nextId()); err != nil {
			return nil, err
		}
	}
	if r.FormValue("parseOnly") == "true" {
		req.ParseOnly = true
	}
	return req, nil
}

// handler makes the HTTP API.
func (c *HTTPDCouplings) handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "\"pong\"\n")
	})

	mux.HandleFunc("/parse", func(w http.ResponseWriter, r *http.Request) {
		svc := c.service()
		if svc == nil {
			puntf(w, http.StatusServiceUnavailable, "no service")
			return
		}
		req, err := c.request(r)
		if err != nil {
			puntf(w, http.StatusBadRequest, "bad request: %v", err)
			return
		}
		reply(w, svc.Process(r.Context(), req))
	})

	mux.HandleFunc("/in", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			puntf(w, http.StatusMethodNotAllowed, "POST only")
			return
		}
		req, err := c.request(r)
		if err != nil {
			puntf(w, http.StatusBadRequest, "bad request: %v", err)
			return
		}
		select {
		case <-ctx.Done():
			puntf(w, http.StatusServiceUnavailable, "shutting down")
			return
		case <-r.Context().Done():
			return
		case c.in <- req:
		}
		reply(w, map[string]interface{}{
			"id": req.Id,
		})
	})

	mux.HandleFunc("/history", func(w http.ResponseWriter, r *http.Request) {
		var since int64
		if n, err := strconv.ParseInt(r.FormValue("since"), 10, 64); err == nil {
			since = n
		}

		timeout, err := time.ParseDuration(r.FormValue("timeout"))
		if err != nil {
			timeout = 10 * time.Second
		}
		if time.Minute < timeout {
			timeout = time.Minute
		}

		reply(w, c.hist.Get(r.Context(), since, timeout))
	})

	return mux
}

// IO just returns the channels that Start() initialized.
func (c *HTTPDCouplings) IO(ctx context.Context) (chan *sio.Request, chan *sio.Response, chan bool, error) {
	return c.in, c.out, c.done, nil
}

// Stop terminates the HTTP service.  Only the first call does
// anything, and Stop without Start is harmless.
func (c *HTTPDCouplings) Stop(ctx context.Context) error {
	var err error
	c.stop.Do(func() {
		log.Printf("Disconnecting")
		if c.done != nil {
			close(c.done)
		}
		if c.srv != nil {
			err = c.srv.Shutdown(ctx)
		}
	})
	return err
}

// Nothings is a channel of nothing.
//
// A Nothings can be used as a semaphore.
type Nothings chan struct{}

// Signals is sort of sequence of semaphores that can be used to
// report when a new response has arrived.
type Signals struct {
	sync.Mutex
	c Nothings
}

func NewSignals() *Signals {
	return &Signals{
		c: make(Nothings),
	}
}

// Signal tells the Signals that something has happened.
func (s *Signals) Signal() {
	s.Lock()
	close(s.c)
	s.c = make(Nothings)
	s.Unlock()
}

// C returns a channel that is closed upon a Signal().
func (s *Signals) C() Nothings {
	s.Lock()
	c := s.c
	s.Unlock()
	return c
}

// History is a bounded buffer of responses.
//
// Each response is assigned a sequence number starting at 1.
type History struct {
	sync.RWMutex
	sigs   *Signals
	last   int64
	limit  int
	buffer []HistoryMsg
}

func NewHistory(size int) *History {
	return &History{
		limit:  size,
		sigs:   NewSignals(),
		buffer: make([]HistoryMsg, 0, size),
	}
}

// HistoryMsg associates a number with a response.
type HistoryMsg struct {
	N        int64         `json:"n"`
	Response *sio.Response `json:"response"`
}

// Wait returns a channel that's closed when the History receives a
// new response.
func (h *History) Wait() Nothings {
	return h.sigs.C()
}

// Add appends the response, dropping the oldest if the History is
// full, and wakes up any waiting Get.
func (h *History) Add(r *sio.Response) {
	h.Lock()
	if h.limit <= len(h.buffer) {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[0 : h.limit-1]
	}
	h.last++
	h.buffer = append(h.buffer, HistoryMsg{
		N:        h.last,
		Response: r,
	})
	h.Unlock()
	h.sigs.Signal()
}

// get returns (a copy of) the responses after the given sequence
// number.
func (h *History) get(since int64) []HistoryMsg {
	h.RLock()
	defer h.RUnlock()

	var (
		have  = int64(len(h.buffer))
		first = h.last - have
	)

	if since < first {
		since = first
	}
	if h.last < since {
		since = h.last
	}

	msgs := make([]HistoryMsg, have-(since-first))
	copy(msgs, h.buffer[since-first:])
	return msgs
}

// Get obtains responses after the given sequence number.
//
// When none are available, this method blocks, with the given
// timeout, until a new one arrives.
func (h *History) Get(ctx context.Context, since int64, timeout time.Duration) []HistoryMsg {
	wait := h.Wait()

	msgs := h.get(since)

	if len(msgs) == 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		case <-wait:
			msgs = h.get(since)
		}
	}

	return msgs
}
