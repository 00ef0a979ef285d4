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
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Comcast/voxmatch/sio"
	"github.com/Comcast/voxmatch/util"
	. "github.com/Comcast/voxmatch/util/testutil"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTCouplings is an sio.Couplings for an MQTT client.
//
// Messages that arrive on the subscription topics are requests.  Each
// response is published to ResponseTopic, and each message emitted by
// an intent's action is published to DefaultOutboundTopic unless the
// message (a map) has its own "topic" (and optionally "qos").
type MQTTCouplings struct {
	Client               mqtt.Client
	Quiesce              uint
	SubTopics            string
	ResponseTopic        string
	DefaultOutboundTopic string

	InTimeout time.Duration

	incoming chan *sio.Request
	outbound chan *sio.Response
	done     chan bool

	sync.Mutex
	n int
}

func NewMQTTCouplings(args []string) (*MQTTCouplings, *flag.FlagSet) {
	var (
		// Follow mosquitto_sub command line args.

		fs = flag.NewFlagSet("mq", flag.ExitOnError)

		broker      = fs.String("h", "tcp://localhost", "Broker hostname")
		clientId    = fs.String("i", "", "Client id")
		port        = fs.Int("p", 1883, "Broker port")
		keepAlive   = fs.Int("k", 10, "Keep-alive in seconds")
		userName    = fs.String("u", "", "Username")
		password    = fs.String("P", "", "Password")
		willTopic   = fs.String("will-topic", "", "Optional will topic")
		willPayload = fs.String("will-payload", "", "Optional will message")
		willQoS     = fs.Int("will-qos", 0, "Optional will QoS")
		willRetain  = fs.Bool("will-retain", false, "Optional will retention")
		reconnect   = fs.Bool("reconnect", false, "Automatically attempt to reconnect")
		clean       = fs.Bool("c", true, "Clean session")
		quiesce     = fs.Int("quiesce", 100, "Disconnection quiescence (in milliseconds)")

		certFilename = fs.String("cert", "", "Optional cert filename")
		keyFilename  = fs.String("key", "", "Optional key filename")
		insecure     = fs.Bool("insecure", false, "Skip broker cert checking")
		caFilename   = fs.String("cafile", "", "Optional CA cert filename")
		caPath       = fs.String("capath", "", "Optional directory for the CA cert file")

		subTopics = fs.String("t", "voxmatch/in", "subscription topic(s), comma-separated, each optionally TOPIC:QOS")

		responseTopic        = fs.String("response-topic", "voxmatch/parsed", "Topic for responses")
		defaultOutboundTopic = fs.String("def-outbound-topic", "voxmatch/out", "Default topic for emitted messages")
		inTimeout            = fs.Duration("in-timeout", time.Second, "timeout for in-bound queuing")
	)

	if args == nil {
		return nil, fs
	}

	fs.Parse(args)

	mqtt.ERROR = log.New(os.Stderr, "mqtt.error ", 0)

	opts := mqtt.NewClientOptions()

	opts.AddBroker(fmt.Sprintf("%s:%d", *broker, *port))
	opts.SetClientID(*clientId)
	opts.SetKeepAlive(time.Second * time.Duration(*keepAlive))

	opts.Username = *userName
	opts.Password = *password
	opts.AutoReconnect = *reconnect
	opts.CleanSession = *clean

	if *willTopic != "" {
		if *willPayload == "" {
			log.Fatal("will topic without payload")
		}
		opts.WillEnabled = true
		opts.WillTopic = *willTopic
		opts.WillPayload = []byte(*willPayload)
		opts.WillRetained = *willRetain
		opts.WillQos = byte(*willQoS)
	}

	var rootCAs *x509.CertPool
	if *caFilename != "" {
		if rootCAs, _ = x509.SystemCertPool(); rootCAs == nil {
			rootCAs = x509.NewCertPool()
		}
		filename := filepath.Join(*caPath, *caFilename)
		certs, err := ioutil.ReadFile(filename)
		if err != nil {
			log.Fatalf("couldn't read '%s': %s", filename, err)
		}
		if ok := rootCAs.AppendCertsFromPEM(certs); !ok {
			log.Println("No certs appended, using system certs only")
		}
	}

	tlsConf := &tls.Config{
		InsecureSkipVerify: *insecure,
		RootCAs:            rootCAs,
	}

	if *keyFilename != "" {
		cert, err := tls.LoadX509KeyPair(*certFilename, *keyFilename)
		if err != nil {
			log.Fatal(err)
		}
		tlsConf.Certificates = []tls.Certificate{cert}
	}

	opts.SetTLSConfig(tlsConf)

	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v", err)
	}

	c := &MQTTCouplings{
		Quiesce:              uint(*quiesce),
		SubTopics:            *subTopics,
		ResponseTopic:        *responseTopic,
		DefaultOutboundTopic: *defaultOutboundTopic,
		InTimeout:            *inTimeout,

		incoming: make(chan *sio.Request),
		outbound: make(chan *sio.Response),
		done:     make(chan bool),
	}

	opts.DefaultPublishHandler = func(client mqtt.Client, msg mqtt.Message) {
		c.inHandler(context.Background(), msg.Topic(), msg.Payload())
	}

	c.Client = mqtt.NewClient(opts)

	return c, fs
}

// decodeRequest makes a Request from a payload, which is either a
// JSON Request or a plain-text utterance.  The given id is used when
// the payload doesn't have one.
func decodeRequest(payload []byte, id string) (*sio.Request, error) {
	s := strings.TrimSpace(string(payload))
	if s == "" {
		return nil, fmt.Errorf("empty payload")
	}
	req := &sio.Request{}
	if strings.HasPrefix(s, "{") {
		if err := json.Unmarshal([]byte(s), req); err != nil {
			return nil, err
		}
	} else {
		req.Utterance = s
	}
	if req.Id == "" {
		req.Id = id
	}
	return req, nil
}

// inHandler forwards a message from one of our subscriptions to the
// service.
func (c *MQTTCouplings) inHandler(ctx context.Context, topic string, payload []byte) {
	util.Logf("incoming: %s %s", topic, payload)

	c.Lock()
	c.n++
	id := topic + "/" + strconv.Itoa(c.n)
	c.Unlock()

	req, err := decodeRequest(payload, id)
	if err != nil {
		log.Printf("ignoring payload %s on %s: %v", util.Quote(string(payload), 60), topic, err)
		return
	}

	to := time.NewTimer(c.InTimeout)
	defer to.Stop()

	select {
	case <-ctx.Done():
	case <-c.done:
	case c.incoming <- req:
	case <-to.C:
		log.Printf("dropping request %s due to stall", req.Id)
	}
}

// Start creates the MQTT session and starts publishing responses.
func (c *MQTTCouplings) Start(ctx context.Context) error {
	log.Printf("Attempting to connect to broker")
	if token := c.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("Connected to broker")

	for _, topic := range strings.Split(c.SubTopics, ",") {
		topic, qos := parseTopic(strings.TrimSpace(topic))
		if topic == "" {
			continue
		}
		log.Printf("Subscribing to %s (%d)", topic, qos)
		if t := c.Client.Subscribe(topic, qos, nil); t.Wait() && t.Error() != nil {
			return t.Error()
		}
	}

	go c.outLoop(ctx)

	return nil
}

// IO returns the channels made by NewMQTTCouplings.
func (c *MQTTCouplings) IO(ctx context.Context) (chan *sio.Request, chan *sio.Response, chan bool, error) {
	return c.incoming, c.outbound, c.done, nil
}

// publication is a payload and where it should go.
type publication struct {
	Topic   string
	QoS     byte
	Payload []byte
}

// publications determines what to publish for a response: the
// response itself and then each emitted message.
func publications(r *sio.Response, responseTopic, defaultTopic string) []publication {
	acc := make([]publication, 0, 1+len(r.Emitted))

	topic, qos := parseTopic(responseTopic)
	acc = append(acc, publication{
		Topic:   topic,
		QoS:     qos,
		Payload: []byte(JS(r)),
	})

	for _, x := range r.Emitted {
		topic, qos := parseTopic(defaultTopic)
		if m, is := x.(map[string]interface{}); is {
			if s, is := m["topic"].(string); is {
				topic = s
			}
			if n, have := m["qos"]; have {
				if f, is := n.(float64); is && 0 <= f && f <= 2 {
					qos = byte(f)
				} else {
					log.Printf("warning: ignoring qos %#v %T", n, n)
				}
			}
		}
		js, err := json.Marshal(x)
		if err != nil {
			log.Printf("Failed to marshal %#v", x)
			continue
		}
		acc = append(acc, publication{
			Topic:   topic,
			QoS:     qos,
			Payload: js,
		})
	}

	return acc
}

// outLoop publishes what the service produces.
func (c *MQTTCouplings) outLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case r := <-c.outbound:
			for _, p := range publications(r, c.ResponseTopic, c.DefaultOutboundTopic) {
				token := c.Client.Publish(p.Topic, p.QoS, false, p.Payload)
				if token.Wait() && token.Error() != nil {
					log.Printf("Publish error: %s", token.Error())
				}
			}
		}
	}
}

// Stop terminates the MQTT session.
func (c *MQTTCouplings) Stop(ctx context.Context) error {
	log.Printf("Disconnecting")
	c.Client.Disconnect(c.Quiesce)
	close(c.done)
	return nil
}

// parseTopic can extract QoS from a topic name of the form TOPIC:QOS.
func parseTopic(s string) (string, byte) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return s, 0
	}
	n, err := strconv.Atoi(s[i+1:])
	if err != nil || n < 0 || 2 < n {
		return s, 0
	}
	return s[:i], byte(n)
}
