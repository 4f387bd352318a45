package ldapclient

import (
	"crypto/tls"
	"fmt"
	"maps"
	"net"
	"slices"

	"github.com/go-ldap/ldap/v3"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/config"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/directory"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/schema"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/tools"
)

type LDAPClient struct {
	Conn *ldap.Conn
}

var _ directory.Conn = (*LDAPClient)(nil)

// Connect resolves the LDAP hostname to an IP and returns a client bound as the admin.
func Connect(cfg config.LDAPConfig) (*LDAPClient, error) {
	addrs, err := net.LookupHost(cfg.Server)
	if err != nil || len(addrs) == 0 {
		return nil, fmt.Errorf("DNS lookup failed for %s: %v", cfg.Server, err)
	}
	ip := addrs[0]

	tools.Log.WithFields(map[string]interface{}{
		"host": cfg.Server,
		"ip":   ip,
		"port": cfg.Port,
		"tls":  cfg.UseTLS,
	}).Debug("Resolved LDAP server IP")

	return ConnectWithIP(ip, cfg)
}

// ConnectWithIP connects to a specific LDAP IP and returns a bound client.
// TLS certificates are still verified against the configured hostname.
func ConnectWithIP(ip string, cfg config.LDAPConfig) (*LDAPClient, error) {
	var opts []ldap.DialOpt
	if cfg.UseTLS {
		opts = append(opts, ldap.DialWithTLSConfig(&tls.Config{
			ServerName: cfg.Server,
			MinVersion: tls.VersionTLS12,
		}))
	}

	url := cfg.URL(ip)
	tools.Log.WithField("url", url).Debug("Connecting to resolved LDAP IP")

	conn, err := ldap.DialURL(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP: %w", err)
	}

	if err := conn.Bind(cfg.Admin, cfg.AdminPassword); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to bind: %w", err)
	}

	tools.Log.WithField("admin", cfg.Admin).Debug("Successfully bound to LDAP")

	return &LDAPClient{Conn: conn}, nil
}

// Search returns the entries under baseDN, baseDN included, that match filter.
func (c *LDAPClient) Search(baseDN, filter string, attributes []string) ([]*ldap.Entry, error) {
	searchReq := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, 0, false,
		filter,
		attributes,
		nil,
	)

	result, err := c.Conn.Search(searchReq)
	if err != nil {
		return nil, fmt.Errorf("LDAP search failed: %w", err)
	}
	return result.Entries, nil
}

// Add creates an entry with the given object classes and attributes.
func (c *LDAPClient) Add(dn string, objectClasses []string, attrs schema.Attributes) error {
	addReq := ldap.NewAddRequest(dn, nil)
	addReq.Attribute(schema.AttrObjectClass, objectClasses)
	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		addReq.Attribute(name, attrs[name])
	}

	if err := c.Conn.Add(addReq); err != nil {
		return fmt.Errorf("failed to add %s: %w", dn, err)
	}
	return nil
}

// Append adds values to the attributes of dn, keeping existing values.
func (c *LDAPClient) Append(dn string, attrs schema.Attributes) error {
	modReq := ldap.NewModifyRequest(dn, nil)
	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		modReq.Add(name, attrs[name])
	}

	if err := c.Conn.Modify(modReq); err != nil {
		return fmt.Errorf("failed to modify %s: %w", dn, err)
	}
	return nil
}

// Close cleans up the connection
func (c *LDAPClient) Close() {
	if c.Conn != nil {
		c.Conn.Close()
		tools.Log.Debug("Closed LDAP connection")
	}
}
