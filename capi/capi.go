// Package main is the C binding, built as a shared library:
//
//	go build -buildmode=c-shared -o libpolarmqtt.so ./capi
//
// It exposes the session API behind opaque handles so non-Go callers
// (C, C++, Rust over FFI) can drive it. Handles are small integers
// disguised as pointers; they are never dereferenced on either side.
package main

/*
#include <stdint.h>
#include <stddef.h>
#include <stdlib.h>

typedef struct mqtt_session_t *mqtt_session_handle_t;

typedef struct mqtt_message_data_t
{
    const char *topic;
    const uint8_t *payload;
    size_t payload_length;
    int32_t qos;
    int32_t retained;
    int64_t message_id;
} mqtt_message_data_t;

typedef enum mqtt_qos_t
{
    MQTT_QOS_AT_MOST_ONCE = 0,
    MQTT_QOS_AT_LEAST_ONCE = 1,
    MQTT_QOS_EXACTLY_ONCE = 2
} mqtt_qos_t;

typedef enum mqtt_session_state_t
{
    MQTT_STATE_DISCONNECTED = 0,
    MQTT_STATE_CONNECTING = 1,
    MQTT_STATE_CONNECTED = 2,
    MQTT_STATE_RECONNECTING = 3
} mqtt_session_state_t;

typedef enum mqtt_parameter_t
{
    MQTT_PARAM_KEEP_ALIVE_INTERVAL = 0,
    MQTT_PARAM_CLEAN_SESSION = 1,
    MQTT_PARAM_CONNECTION_TIMEOUT = 2,
    MQTT_PARAM_MAX_INFLIGHT = 3,
    MQTT_PARAM_MAX_QUEUED_MESSAGES = 4,
    MQTT_PARAM_RECONNECT_DELAY = 5,
    MQTT_PARAM_TLS_ENABLED = 6
} mqtt_parameter_t;

// Message data is only valid during callback execution.
typedef void (*mqtt_message_callback_t)(const mqtt_message_data_t *message, void *user_context);
typedef void (*mqtt_state_callback_t)(mqtt_session_state_t new_state, void *user_context);
typedef void (*mqtt_error_callback_t)(int error_code, const char *message, void *user_context);

// Gateways: Go cannot call a C function pointer directly.
static void invoke_message_cb(mqtt_message_callback_t cb, const mqtt_message_data_t *message, void *ctx)
{
    cb(message, ctx);
}

static void invoke_state_cb(mqtt_state_callback_t cb, mqtt_session_state_t state, void *ctx)
{
    cb(state, ctx);
}

static void invoke_error_cb(mqtt_error_callback_t cb, int code, const char *message, void *ctx)
{
    cb(code, message, ctx);
}

// Handles are table ids, not addresses; convert on the C side so the
// integer/pointer punning never goes through Go's unsafe package.
static mqtt_session_handle_t handle_from_id(uintptr_t id)
{
    return (mqtt_session_handle_t)id;
}

static uintptr_t handle_to_id(mqtt_session_handle_t h)
{
    return (uintptr_t)h;
}
*/
import "C"

import (
	"sync"
	"unsafe"

	polarmqtt "github.com/jsulmont/polar-mqtt"
)

// bridgeSession pairs a session with the C callbacks registered for it.
type bridgeSession struct {
	session   *polarmqtt.Session
	messageCB C.mqtt_message_callback_t
	stateCB   C.mqtt_state_callback_t
	errorCB   C.mqtt_error_callback_t
	userCtx   unsafe.Pointer
}

var (
	bridgeMu   sync.Mutex
	factory    *polarmqtt.Factory
	sessions   = make(map[uintptr]*bridgeSession)
	nextHandle uintptr
)

// lookup resolves a handle under the bridge lock. Handle 0 is the null
// handle and never resolves.
func lookup(h C.mqtt_session_handle_t) *bridgeSession {
	bridgeMu.Lock()
	defer bridgeMu.Unlock()
	return sessions[uintptr(C.handle_to_id(h))]
}

// OnStateChange forwards a state transition to the C callback.
func (b *bridgeSession) OnStateChange(state polarmqtt.SessionState) {
	if b.stateCB == nil {
		return
	}
	C.invoke_state_cb(b.stateCB, C.mqtt_session_state_t(state), b.userCtx)
}

// OnError forwards an error to the C callback. The message string only
// lives for the duration of the call.
func (b *bridgeSession) OnError(code int, message string) {
	if b.errorCB == nil {
		return
	}
	cmsg := C.CString(message)
	C.invoke_error_cb(b.errorCB, C.int(code), cmsg, b.userCtx)
	C.free(unsafe.Pointer(cmsg))
}

// OnMessage forwards an inbound message. Topic and payload are copied to
// C memory for the duration of the callback and freed on return, per the
// callback contract.
func (b *bridgeSession) OnMessage(msg *polarmqtt.Message) {
	if b.messageCB == nil {
		return
	}
	ctopic := C.CString(msg.Topic())
	var cpayload unsafe.Pointer
	if msg.PayloadLength() > 0 {
		cpayload = C.CBytes(msg.Payload())
	}
	data := C.mqtt_message_data_t{
		topic:          ctopic,
		payload:        (*C.uint8_t)(cpayload),
		payload_length: C.size_t(msg.PayloadLength()),
		qos:            C.int32_t(msg.QoS()),
		retained:       boolToInt32(msg.Retained()),
		message_id:     C.int64_t(msg.MessageID()),
	}
	C.invoke_message_cb(b.messageCB, &data, b.userCtx)
	C.free(unsafe.Pointer(ctopic))
	if cpayload != nil {
		C.free(cpayload)
	}
}

func boolToInt32(v bool) C.int32_t {
	if v {
		return 1
	}
	return 0
}

//export mqtt_initialize
func mqtt_initialize(appName, appVersion *C.char, debug C.int, logFile *C.char) C.int {
	bridgeMu.Lock()
	defer bridgeMu.Unlock()
	if factory != nil {
		return 0
	}
	f := polarmqtt.GetFactory()
	if err := f.Initialize(C.GoString(appName), C.GoString(appVersion), debug != 0, C.GoString(logFile)); err != nil {
		f.Uninitialize()
		return -1
	}
	factory = f
	return 0
}

//export mqtt_uninitialize
func mqtt_uninitialize() C.int {
	bridgeMu.Lock()
	defer bridgeMu.Unlock()
	if factory == nil {
		return 0
	}
	if err := factory.Uninitialize(); err != nil {
		return -1
	}
	factory = nil
	return 0
}

//export mqtt_create_session
func mqtt_create_session(clientID *C.char,
	messageCB C.mqtt_message_callback_t,
	stateCB C.mqtt_state_callback_t,
	errorCB C.mqtt_error_callback_t,
	userCtx unsafe.Pointer) C.mqtt_session_handle_t {
	bridgeMu.Lock()
	defer bridgeMu.Unlock()
	if factory == nil {
		return nil
	}

	b := &bridgeSession{
		messageCB: messageCB,
		stateCB:   stateCB,
		errorCB:   errorCB,
		userCtx:   userCtx,
	}
	b.session = factory.CreateSession(C.GoString(clientID), b)
	if messageCB != nil {
		b.session.SetMessageHandler(b)
	}

	nextHandle++
	sessions[nextHandle] = b
	return C.handle_from_id(C.uintptr_t(nextHandle))
}

//export mqtt_destroy_session
func mqtt_destroy_session(h C.mqtt_session_handle_t) {
	bridgeMu.Lock()
	key := uintptr(C.handle_to_id(h))
	b := sessions[key]
	delete(sessions, key)
	f := factory
	bridgeMu.Unlock()
	if b == nil {
		return
	}
	b.session.Stop()
	if f != nil {
		f.DestroySession(b.session)
	}
}

//export mqtt_set_int_parameter
func mqtt_set_int_parameter(h C.mqtt_session_handle_t, param C.mqtt_parameter_t, value C.int32_t) C.int {
	b := lookup(h)
	if b == nil {
		return -1
	}
	b.session.Config().Set(polarmqtt.Parameter(param), int(value))
	return 0
}

//export mqtt_set_bool_parameter
func mqtt_set_bool_parameter(h C.mqtt_session_handle_t, param C.mqtt_parameter_t, value C.int) C.int {
	b := lookup(h)
	if b == nil {
		return -1
	}
	b.session.Config().SetBool(polarmqtt.Parameter(param), value != 0)
	return 0
}

//export mqtt_set_broker
func mqtt_set_broker(h C.mqtt_session_handle_t, url *C.char, port C.uint16_t) C.int {
	b := lookup(h)
	if b == nil {
		return -1
	}
	b.session.Config().SetBroker(C.GoString(url), uint16(port))
	return 0
}

//export mqtt_set_credentials
func mqtt_set_credentials(h C.mqtt_session_handle_t, username, password *C.char) C.int {
	b := lookup(h)
	if b == nil {
		return -1
	}
	b.session.Config().SetCredentials(C.GoString(username), C.GoString(password))
	return 0
}

//export mqtt_set_tls_certificates
func mqtt_set_tls_certificates(h C.mqtt_session_handle_t, caFile, certFile, keyFile *C.char) C.int {
	b := lookup(h)
	if b == nil {
		return -1
	}
	b.session.Config().SetTLSCertificates(C.GoString(caFile), C.GoString(certFile), C.GoString(keyFile))
	return 0
}

//export mqtt_session_get_state
func mqtt_session_get_state(h C.mqtt_session_handle_t) C.mqtt_session_state_t {
	b := lookup(h)
	if b == nil {
		return C.MQTT_STATE_DISCONNECTED
	}
	return C.mqtt_session_state_t(b.session.State())
}

//export mqtt_session_start
func mqtt_session_start(h C.mqtt_session_handle_t) C.int {
	b := lookup(h)
	if b == nil {
		return -1
	}
	if !b.session.Start() {
		return -1
	}
	return 0
}

//export mqtt_session_stop
func mqtt_session_stop(h C.mqtt_session_handle_t) C.int {
	b := lookup(h)
	if b == nil {
		return -1
	}
	if !b.session.Stop() {
		return -1
	}
	return 0
}

//export mqtt_subscribe
func mqtt_subscribe(h C.mqtt_session_handle_t, topic *C.char, qos C.mqtt_qos_t) C.int64_t {
	b := lookup(h)
	if b == nil {
		return -1
	}
	return C.int64_t(b.session.Subscribe(C.GoString(topic), polarmqtt.QoS(qos)))
}

//export mqtt_unsubscribe
func mqtt_unsubscribe(h C.mqtt_session_handle_t, handle C.int64_t) C.int {
	b := lookup(h)
	if b == nil {
		return -1
	}
	if !b.session.Unsubscribe(int64(handle)) {
		return -1
	}
	return 0
}

//export mqtt_publish
func mqtt_publish(h C.mqtt_session_handle_t, topic *C.char,
	payload *C.uint8_t, length C.size_t,
	qos C.mqtt_qos_t, retain C.int) C.int64_t {
	b := lookup(h)
	if b == nil {
		return -1
	}
	var buf []byte
	if payload != nil && length > 0 {
		buf = C.GoBytes(unsafe.Pointer(payload), C.int(length))
	}
	return C.int64_t(b.session.Publish(C.GoString(topic), buf, polarmqtt.QoS(qos), retain != 0))
}

func main() {}
