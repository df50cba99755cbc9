package vectorutils

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/pkg/vector"
	"github.com/papercomputeco/tomes/pkg/vector/chroma"
	"github.com/papercomputeco/tomes/pkg/vector/inmemory"
	"github.com/papercomputeco/tomes/pkg/vector/qdrant"
	"github.com/papercomputeco/tomes/pkg/vector/sqlitevec"
)

// Supported vector store providers.
const (
	ProviderChroma    = "chroma"
	ProviderQdrant    = "qdrant"
	ProviderSQLiteVec = "sqlite"
	ProviderInMemory  = "inmemory"
)

type NewVectorDriverOpts struct {
	ProviderType string

	// TargetURL is the Chroma URL, the Qdrant "host:port" (optionally with a
	// scheme) or the sqlite-vec database path, depending on ProviderType.
	TargetURL string

	APIKey     string
	Dimensions uint
	Logger     *zap.Logger
}

func NewVectorDriver(o *NewVectorDriverOpts) (vector.Driver, error) {
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch o.ProviderType {
	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL: o.TargetURL,
		}, logger)
	case ProviderQdrant:
		host, port, useTLS, err := parseQdrantTarget(o.TargetURL)
		if err != nil {
			return nil, err
		}
		return qdrant.NewDriver(qdrant.Config{
			Host:       host,
			Port:       port,
			APIKey:     o.APIKey,
			UseTLS:     useTLS,
			Dimensions: o.Dimensions,
		}, logger)
	case ProviderSQLiteVec:
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.TargetURL,
			Dimensions: o.Dimensions,
		}, logger)
	case ProviderInMemory, "":
		return inmemory.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

func parseQdrantTarget(target string) (string, int, bool, error) {
	if target == "" {
		return "", 0, false, fmt.Errorf("qdrant target is required")
	}

	useTLS := false
	if strings.Contains(target, "://") {
		u, err := url.Parse(target)
		if err != nil {
			return "", 0, false, fmt.Errorf("parsing qdrant target %q: %w", target, err)
		}
		useTLS = u.Scheme == "https"
		target = u.Host
	}

	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// no port given
		return target, qdrant.DefaultPort, useTLS, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, useTLS, nil
}
