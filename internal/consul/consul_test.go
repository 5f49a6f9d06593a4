package consul

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	consulapi "github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAgent struct {
	mu           sync.Mutex
	registered   consulapi.AgentServiceRegistration
	deregistered string
}

func (f *fakeAgent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.URL.Path == "/v1/agent/service/register":
		_ = json.NewDecoder(r.Body).Decode(&f.registered)
	case strings.HasPrefix(r.URL.Path, "/v1/agent/service/deregister/"):
		f.deregistered = strings.TrimPrefix(r.URL.Path, "/v1/agent/service/deregister/")
	default:
		http.NotFound(w, r)
	}
}

func TestRegisterAndDeregister(t *testing.T) {
	agent := &fakeAgent{}
	srv := httptest.NewServer(agent)
	defer srv.Close()

	client, err := NewClient(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)

	id, err := RegisterService(client, Registration{Name: "bakery", Address: "10.0.0.5", Port: 8080, HealthPath: "/ping"})
	require.NoError(t, err)
	assert.Equal(t, "bakery-10.0.0.5-8080", id)

	agent.mu.Lock()
	assert.Equal(t, "bakery", agent.registered.Name)
	assert.Equal(t, 8080, agent.registered.Port)
	require.NotNil(t, agent.registered.Check)
	assert.Equal(t, "http://10.0.0.5:8080/ping", agent.registered.Check.HTTP)
	agent.mu.Unlock()

	require.NoError(t, Deregister(client, id))
	agent.mu.Lock()
	assert.Equal(t, id, agent.deregistered)
	agent.mu.Unlock()
}
