// Package consul adapts a Sink's listening address into a Consul service registration so
// that Source connections can discover a reduce task's buffer endpoints without being
// handed a static host:port out of band.
package consul

import (
	"fmt"
	"net"
	"os"

	consul "github.com/hashicorp/consul/api"

	"github.com/Scusemua/go-utils/config"
	"github.com/Scusemua/go-utils/logger"
)

// NewClient returns a new Client connected to the Consul agent at addr.
func NewClient(addr string) (*Client, error) {
	cfg := consul.DefaultConfig()
	cfg.Address = addr

	c, err := consul.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	cli := &Client{Client: c}
	config.InitLogger(&cli.logger, "Registry ")

	return cli, nil
}

// Client wraps the Consul API client with the bookkeeping a Sink needs to advertise
// and withdraw its buffer endpoints.
type Client struct {
	*consul.Client

	logger logger.Logger
}

// getLocalIP looks for the network interface to advertise a Sink on.
//
// The preferred CIDR can be supplied via the PRITER_SINK_NETWORK environment variable.
// If that variable is unset or does not match any local interface, the first
// non-loopback IPv4 address is used instead.
func (c *Client) getLocalIP() (string, error) {
	var sinkIP string
	var ips []net.IP

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				ips = append(ips, ipnet.IP)
			}
		}
	}

	if len(ips) == 0 {
		return "", fmt.Errorf("registry: cannot find a non-loopback local IP")
	} else if len(ips) > 1 {
		sinkIP = ips[0].String()

		preferredNet := os.Getenv("PRITER_SINK_NETWORK")
		_, ipNet, err := net.ParseCIDR(preferredNet)
		if err != nil {
			c.logger.Debug("No usable PRITER_SINK_NETWORK CIDR set (%v); using first detected address", preferredNet)
		} else {
			for _, ip := range ips {
				if ipNet.Contains(ip) {
					sinkIP = ip.String()
					c.logger.Info("Routing Sink traffic over dedicated network %s", sinkIP)
					break
				}
			}
		}
	} else {
		sinkIP = ips[0].String()
	}

	return sinkIP, nil
}

// Register advertises a Sink's buffer endpoint under the given service name and id.
// id should uniquely identify the (jobId, taskId, BufferType) triple the Sink serves,
// so that a Source can distinguish between a reduce task's FILE, SNAPSHOT, STREAM, and
// PKVBUF endpoints. If ip is empty, the local advertised address is auto-detected.
func (c *Client) Register(name string, id string, ip string, port int) error {
	if ip == "" {
		var err error
		ip, err = c.getLocalIP()
		if err != nil {
			return err
		}
	}

	reg := &consul.AgentServiceRegistration{
		ID:      id,
		Name:    name,
		Port:    port,
		Address: ip,
	}

	c.logger.Info("Registering Sink [name=%s, id=%s, address=%s:%d]", name, id, ip, port)
	return c.Agent().ServiceRegister(reg)
}

// Deregister withdraws a previously registered Sink endpoint.
func (c *Client) Deregister(id string) error {
	return c.Agent().ServiceDeregister(id)
}
