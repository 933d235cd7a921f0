// Package polarmqtt provides a session-oriented façade over an MQTT
// protocol engine.
//
// The package does not speak the MQTT wire protocol itself. It owns the
// session bookkeeping around a narrow engine contract: connection state
// tracking, subscription handles, local message identifiers, and the
// dispatch of asynchronous engine events (inbound messages, connection
// loss, state transitions) to user-supplied handlers. The default engine
// is backed by the Eclipse Paho client (github.com/eclipse/paho.mqtt.golang),
// which also owns the reconnect policy.
//
// # Quick Start
//
// Sessions are handed out by the process-wide Factory:
//
//	factory := polarmqtt.GetFactory()
//	defer factory.Uninitialize()
//	factory.Initialize("my-app", "1.0", false, "")
//
//	session := factory.CreateSession("sensorA", polarmqtt.SessionHandlerFuncs{
//	    StateChange: func(s polarmqtt.SessionState) { log.Println("state:", s) },
//	    Error:       func(code int, msg string) { log.Printf("error %d: %s", code, msg) },
//	})
//	defer factory.DestroySession(session)
//
//	session.Config().SetBroker("broker.example", 1883)
//	if !session.Start() {
//	    log.Fatal("broker not reachable")
//	}
//
//	handle := session.Subscribe("sensors/+/temp", polarmqtt.AtLeastOnce)
//	id := session.Publish("sensors/a/temp", []byte("21.5"), polarmqtt.AtLeastOnce, false)
//	_ = handle
//	_ = id
//
// # Error Reporting
//
// Session operations never return Go errors. Local rejections (missing
// broker address, unknown subscription handle, session not started) are
// reported only through boolean or -1 sentinel returns. Engine-level
// failures additionally invoke SessionHandler.OnError with the engine's
// native result code. Asynchronous connection loss is reported purely
// through the SessionHandler: a state change to StateReconnecting followed
// by OnError with ErrCodeLocal.
//
// # Concurrency
//
// State-changing calls (Start, Stop, Subscribe, Unsubscribe, Publish) are
// synchronous and intended to be issued from caller goroutines; engine
// events arrive on the engine's own delivery goroutine. The connection
// state is safe to observe from any goroutine via State. Concurrent
// state-changing calls on the same Session from multiple goroutines are
// not serialized by the façade.
//
// # C ABI
//
// The capi directory builds a c-shared library exposing the same session
// model as a flat handle-based C API:
//
//	go build -buildmode=c-shared -o libpolarmqtt.so ./capi
package polarmqtt
