/*Package comm provides the transport used to talk to observatory hardware
over the Alpaca REST protocol.

Most usages of this package will boil down to:
	1.  embed *RemoteDevice in a type that represents your hardware.
	2.  call Open once to connect the device, retrying with backoff.
	3.  write methods in terms of GetFloat, GetInt, GetBool, GetString and Put.

A minimal example is provided below for a focuser which reports its position
through GET /api/v1/focuser/0/position

	type MyFocuser struct {
		*comm.RemoteDevice
	}

	func (f MyFocuser) Position() (int, error) {
		return f.GetInt("position")
	}

Every request carries a client id and a monotonically increasing transaction
id, and waits on the device's rate limiter before it is sent so that polling
loops do not flood the remote.
*/
package comm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds each request when the device has no http.Client
	DefaultTimeout = 10 * time.Second

	// DefaultRequestsPerSecond throttles a device when NewRemoteDevice is
	// given a non-positive rate
	DefaultRequestsPerSecond = 20
)

var (
	// ErrNotConnected is generated when Get or Put is called on a device
	// with no address
	ErrNotConnected = errors.New("no address, not connected to remote")

	// ErrBadStatus is wrapped when the remote answers with a non-2xx status
	ErrBadStatus = errors.New("unexpected HTTP status")
)

// Error is an error reported by the device itself through the ErrorNumber
// and ErrorMessage fields of a response
type Error struct {
	Number  int
	Message string
}

// Error satisfies the error interface
func (e Error) Error() string {
	return fmt.Sprintf("alpaca error 0x%X: %s", e.Number, e.Message)
}

// Response is the envelope of every Alpaca reply.  Value is left raw and
// decoded by the caller into whatever type the method returns.
type Response struct {
	Value               json.RawMessage `json:"Value,omitempty"`
	ClientTransactionID uint32          `json:"ClientTransactionID"`
	ServerTransactionID uint32          `json:"ServerTransactionID"`
	ErrorNumber         int             `json:"ErrorNumber"`
	ErrorMessage        string          `json:"ErrorMessage"`
}

// Err returns the device error carried by the response, if any
func (r Response) Err() error {
	if r.ErrorNumber == 0 {
		return nil
	}
	return Error{Number: r.ErrorNumber, Message: r.ErrorMessage}
}

/*RemoteDevice has an address and implements the request half of the Alpaca
protocol for one device

the device is concurrent-safe; requests are serialized only by the rate
limiter and the http.Client
*/
type RemoteDevice struct {
	// Addr is the base URL of the Alpaca server, e.g. http://192.168.0.10:11111
	Addr string

	// DeviceType is the lower case Alpaca device type, e.g. camera
	DeviceType string

	// Number is the device number on the server
	Number int

	// ClientID identifies this program to the server
	ClientID uint32

	// HTTP is the client used for requests
	HTTP *http.Client

	// Limiter throttles requests.  If nil, requests are not throttled
	Limiter *rate.Limiter

	txn uint32
}

// NewRemoteDevice creates a new RemoteDevice instance.  rps is the maximum
// number of requests per second, DefaultRequestsPerSecond if <= 0.  timeout
// bounds each request, DefaultTimeout if <= 0.
func NewRemoteDevice(addr, deviceType string, number int, rps float64, timeout time.Duration) *RemoteDevice {
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RemoteDevice{
		Addr:       strings.TrimSuffix(addr, "/"),
		DeviceType: strings.ToLower(deviceType),
		Number:     number,
		ClientID:   1,
		HTTP:       &http.Client{Timeout: timeout},
		Limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// URL is the endpoint of an Alpaca method on this device
func (rd *RemoteDevice) URL(method string) string {
	return fmt.Sprintf("%s/api/v1/%s/%d/%s", rd.Addr, rd.DeviceType, rd.Number, strings.ToLower(method))
}

// Open connects the device, retrying with exponential backoff for up to
// three seconds
func (rd *RemoteDevice) Open() error {
	op := func() error {
		return rd.Put("connected", url.Values{"Connected": {"true"}})
	}
	return backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock})
}

// Close disconnects the device
func (rd *RemoteDevice) Close() error {
	return rd.Put("connected", url.Values{"Connected": {"false"}})
}

func (rd *RemoteDevice) ids(v url.Values) url.Values {
	if v == nil {
		v = url.Values{}
	}
	v.Set("ClientID", strconv.FormatUint(uint64(rd.ClientID), 10))
	v.Set("ClientTransactionID", strconv.FormatUint(uint64(atomic.AddUint32(&rd.txn, 1)), 10))
	return v
}

func (rd *RemoteDevice) client() *http.Client {
	if rd.HTTP == nil {
		return &http.Client{Timeout: DefaultTimeout}
	}
	return rd.HTTP
}

func (rd *RemoteDevice) do(req *http.Request) (Response, error) {
	var resp Response
	if rd.Limiter != nil {
		if err := rd.Limiter.Wait(req.Context()); err != nil {
			return resp, err
		}
	}
	r, err := rd.client().Do(req)
	if err != nil {
		return resp, err
	}
	defer r.Body.Close()
	if r.StatusCode < 200 || r.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(r.Body, 512))
		return resp, fmt.Errorf("%w %d from %s: %s", ErrBadStatus, r.StatusCode, req.URL.Path, bytes.TrimSpace(msg))
	}
	if err = json.NewDecoder(r.Body).Decode(&resp); err != nil {
		return resp, fmt.Errorf("decoding %s: %w", req.URL.Path, err)
	}
	return resp, resp.Err()
}

// Get calls an Alpaca property or method with GET and returns the response
func (rd *RemoteDevice) Get(method string, params url.Values) (Response, error) {
	if rd.Addr == "" {
		return Response{}, ErrNotConnected
	}
	u := rd.URL(method) + "?" + rd.ids(params).Encode()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, u, nil)
	if err != nil {
		return Response{}, err
	}
	return rd.do(req)
}

// Put calls an Alpaca method with PUT and a form encoded body
func (rd *RemoteDevice) Put(method string, form url.Values) error {
	if rd.Addr == "" {
		return ErrNotConnected
	}
	body := strings.NewReader(rd.ids(form).Encode())
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPut, rd.URL(method), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	_, err = rd.do(req)
	return err
}

// GetValue calls Get and decodes the Value of the response into v
func (rd *RemoteDevice) GetValue(method string, v interface{}) error {
	resp, err := rd.Get(method, nil)
	if err != nil {
		return err
	}
	if len(resp.Value) == 0 {
		return fmt.Errorf("%s: response has no value", method)
	}
	if err = json.Unmarshal(resp.Value, v); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// GetFloat gets a floating point property
func (rd *RemoteDevice) GetFloat(method string) (float64, error) {
	var f float64
	err := rd.GetValue(method, &f)
	return f, err
}

// GetInt gets an integer property
func (rd *RemoteDevice) GetInt(method string) (int, error) {
	var i int
	err := rd.GetValue(method, &i)
	return i, err
}

// GetBool gets a boolean property
func (rd *RemoteDevice) GetBool(method string) (bool, error) {
	var b bool
	err := rd.GetValue(method, &b)
	return b, err
}

// GetString gets a string property
func (rd *RemoteDevice) GetString(method string) (string, error) {
	var s string
	err := rd.GetValue(method, &s)
	return s, err
}

// GetStrings gets a property that is a list of strings
func (rd *RemoteDevice) GetStrings(method string) ([]string, error) {
	var s []string
	err := rd.GetValue(method, &s)
	return s, err
}

// FormatFloat formats f for a PUT body
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
