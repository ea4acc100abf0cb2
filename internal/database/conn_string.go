package database

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/janm2001/cryptofeed/internal/config"
)

// BuildConnString builds a pgxpool connection string from config. Pool
// sizing rides along as pool_min_conns/pool_max_conns query parameters so
// pgxpool.ParseConfig picks it up without further wiring.
func BuildConnString(cfg config.DBConfig) string {
	q := url.Values{}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	q.Set("sslmode", sslMode)

	if cfg.MinConns > 0 {
		q.Set("pool_min_conns", strconv.Itoa(cfg.MinConns))
	}
	if cfg.MaxConns > 0 {
		q.Set("pool_max_conns", strconv.Itoa(cfg.MaxConns))
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?%s",
		cfg.User,
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.Name,
		q.Encode(),
	)
}
