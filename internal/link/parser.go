package link

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"axiom-vpn/internal/domain"
)

const Scheme = "vless://"

// Strategy names the parsing path that produced a profile.
type Strategy string

const (
	StrategyURI    Strategy = "uri"
	StrategyManual Strategy = "manual"
)

// Result is a successfully parsed link.
type Result struct {
	Profile  domain.ConnectionProfile
	Strategy Strategy
	// Name is the decoded fragment. It is only used for display.
	Name string
}

var errURIRejected = errors.New("link rejected by uri parser")

// Parse turns a vless:// link into a connection profile. The generic URI
// parser is tried first; when it rejects the link the fields are sliced out
// by hand. Both paths enforce the same credential checks.
func Parse(link string) (*Result, error) {
	link = strings.TrimSpace(link)
	if !strings.HasPrefix(link, Scheme) {
		return nil, domain.NewStageError(string(StrategyURI), "link must start with "+Scheme, domain.ErrInvalidScheme)
	}

	profile, name, err := parseURI(link)
	if err == nil {
		return &Result{Profile: profile, Strategy: StrategyURI, Name: name}, nil
	}
	if !errors.Is(err, errURIRejected) {
		return nil, err
	}

	profile, name, ferr := parseManual(link)
	if ferr != nil {
		return nil, ferr
	}
	return &Result{Profile: profile, Strategy: StrategyManual, Name: name}, nil
}

func parseURI(link string) (domain.ConnectionProfile, string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return domain.ConnectionProfile{}, "", fmt.Errorf("%w: %v", errURIRejected, err)
	}
	if u.Hostname() == "" {
		return domain.ConnectionProfile{}, "", fmt.Errorf("%w: empty host", errURIRejected)
	}

	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return domain.ConnectionProfile{}, "", fmt.Errorf("%w: %v", errURIRejected, err)
	}

	var identity string
	if u.User != nil {
		identity = u.User.Username()
	}

	profile := buildProfile(identity, u.Hostname(), u.Port(), query)
	if err := checkCredentials(profile, StrategyURI); err != nil {
		return domain.ConnectionProfile{}, "", err
	}

	return profile, decodeFragment(u.EscapedFragment()), nil
}

// parseManual splits the link by its separators: identity@host:port?query#fragment.
func parseManual(link string) (domain.ConnectionProfile, string, error) {
	rest := strings.TrimPrefix(link, Scheme)

	userInfo, rest, ok := strings.Cut(rest, "@")
	if !ok {
		return domain.ConnectionProfile{}, "", domain.NewStageError(string(StrategyManual), "missing @ separator", domain.ErrMalformedStructure)
	}

	rest, fragment, _ := strings.Cut(rest, "#")
	hostPort, rawQuery, _ := strings.Cut(rest, "?")
	host, port := splitHostPort(hostPort)
	if host == "" {
		return domain.ConnectionProfile{}, "", domain.NewStageError(string(StrategyManual), "missing host", domain.ErrMalformedStructure)
	}

	identity, _, _ := strings.Cut(userInfo, ":")
	if decoded, err := url.PathUnescape(identity); err == nil {
		identity = decoded
	}

	profile := buildProfile(identity, host, port, splitQuery(rawQuery))
	if err := checkCredentials(profile, StrategyManual); err != nil {
		return domain.ConnectionProfile{}, "", err
	}

	return profile, decodeFragment(fragment), nil
}

// splitQuery separates pairs on '&' only and keeps values that do not
// unescape as raw text.
func splitQuery(rawQuery string) url.Values {
	query := url.Values{}
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		query.Add(unescapeOrRaw(key), unescapeOrRaw(value))
	}
	return query
}

func unescapeOrRaw(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

func buildProfile(identity, host, port string, query url.Values) domain.ConnectionProfile {
	return domain.ConnectionProfile{
		Identity:         identity,
		Address:          host,
		Port:             parsePort(port),
		CamouflageDomain: query.Get("sni"),
		PublicKey:        query.Get("pbk"),
		ShortID:          query.Get("sid"),
		FlowControl:      query.Get("flow"),
	}
}

func checkCredentials(p domain.ConnectionProfile, strategy Strategy) error {
	if !p.Usable() {
		return domain.NewStageError(string(strategy), "uuid and pbk are required", domain.ErrMissingCredentials)
	}
	return nil
}

func splitHostPort(hostPort string) (string, string) {
	if host, port, err := net.SplitHostPort(hostPort); err == nil {
		return host, port
	}
	host, port, _ := strings.Cut(hostPort, ":")
	return host, port
}

func parsePort(s string) int {
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return domain.DefaultPort
	}
	return port
}

// The fragment only names the link.
func decodeFragment(fragment string) string {
	return unescapeOrRaw(fragment)
}
