package consul

import (
	"fmt"
	"os"
	"strconv"

	consulapi "github.com/hashicorp/consul/api"
)

// Registration describes this instance to the Consul agent.
type Registration struct {
	Name       string
	Address    string
	Port       int
	HealthPath string
}

func NewClient(addr string) (*consulapi.Client, error) {
	cfg := consulapi.DefaultConfig()
	cfg.Address = addr
	client, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating consul client: %w", err)
	}
	return client, nil
}

// RegisterService registers the instance with an HTTP health check and
// returns the service id needed to deregister it.
func RegisterService(client *consulapi.Client, r Registration) (string, error) {
	if r.Address == "" {
		host, err := os.Hostname()
		if err != nil {
			return "", err
		}
		r.Address = host
	}
	id := r.Name + "-" + r.Address + "-" + strconv.Itoa(r.Port)

	reg := &consulapi.AgentServiceRegistration{
		ID:      id,
		Name:    r.Name,
		Address: r.Address,
		Port:    r.Port,
		Check: &consulapi.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d%s", r.Address, r.Port, r.HealthPath),
			Interval:                       "10s",
			Timeout:                        "2s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}
	if err := client.Agent().ServiceRegister(reg); err != nil {
		return "", fmt.Errorf("registering %s: %w", id, err)
	}
	return id, nil
}

func Deregister(client *consulapi.Client, id string) error {
	return client.Agent().ServiceDeregister(id)
}
