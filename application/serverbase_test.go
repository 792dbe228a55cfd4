package application

import (
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/botvault-sys/botvault-go/application/testutil"
	"github.com/botvault-sys/botvault-go/protocol"
)

// startTestServer listens on the test unix socket with an echo-style
// handler that records which request types reached it.
func startTestServer(t *testing.T, perms map[int]bool) (*ServerBase, chan int) {
	t.Helper()
	dir, err := ioutil.TempDir("", "serverbase")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	os.Remove(testutil.LocalConnection)

	addr := &ServerAddress{Address: "unix://" + testutil.LocalConnection}
	conf := NewCommonConfig(dir+"/config.toml", "toml",
		&LoggerConfig{Environment: "development"})

	sb := NewServerBase(conf, "Listen",
		map[*ServerAddress]map[int]bool{addr: perms})
	handled := make(chan int, 1)
	sb.ListenAndHandle(addr, func(req *protocol.Request) *protocol.Response {
		handled <- req.Type
		return protocol.NewErrorResponse(protocol.ReqSuccess)
	})
	t.Cleanup(func() { sb.Shutdown() })
	// give the listener a moment to come up
	time.Sleep(50 * time.Millisecond)
	return sb, handled
}

func TestAcceptsPermittedRequest(t *testing.T) {
	_, handled := startTestServer(t, map[int]bool{protocol.ListBotsType: true})

	msg, err := MarshalRequest(protocol.ListBotsType, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := testutil.NewUnixClient(msg)
	if err != nil {
		t.Fatal(err)
	}
	response := UnmarshalResponse(protocol.ListBotsType, res)
	if response.Error != protocol.ReqSuccess {
		t.Fatalf("Expect success, got %v", response.Error)
	}
	select {
	case reqType := <-handled:
		if reqType != protocol.ListBotsType {
			t.Fatalf("Handler saw type %d", reqType)
		}
	default:
		t.Fatal("Request never reached the handler")
	}
}

func TestRejectsUnpermittedRequest(t *testing.T) {
	_, handled := startTestServer(t, map[int]bool{protocol.ListBotsType: true})

	msg, err := MarshalRequest(protocol.SubmitType, &protocol.SubmitRequest{
		Name: "Falcon", Email: "a@b.c", Code: "x", Secret: "s",
	})
	if err != nil {
		t.Fatal(err)
	}
	res, err := testutil.NewUnixClient(msg)
	if err != nil {
		t.Fatal(err)
	}
	response := UnmarshalResponse(protocol.SubmitType, res)
	if response.Error != protocol.ErrMalformedMessage {
		t.Fatalf("Expect ErrMalformedMessage, got %v", response.Error)
	}
	select {
	case <-handled:
		t.Fatal("Unpermitted request reached the handler")
	default:
	}
}

func TestRejectsGarbage(t *testing.T) {
	startTestServer(t, map[int]bool{protocol.ListBotsType: true})

	res, err := testutil.NewUnixClient([]byte("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	response := UnmarshalResponse(protocol.ListBotsType, res)
	if response.Error != protocol.ErrMalformedMessage {
		t.Fatalf("Expect ErrMalformedMessage, got %v", response.Error)
	}
}
