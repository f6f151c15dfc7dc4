package service

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"sync"
	"time"

	"copy_bot/internal/modules/config"
	"copy_bot/pkg/tracing"

	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const (
	MainnetAPIURL = "https://api.hyperliquid.xyz"
	TestnetAPIURL = "https://api.hyperliquid-testnet.xyz"
)

var ErrNoSigner = errors.New("hyperliquid: private key is not configured")

// Client — REST-клиент Hyperliquid: /info для чтения и /exchange для подписанных ордеров.
type Client struct {
	http    *resty.Client
	key     *ecdsa.PrivateKey
	mainnet bool

	nonceMu   sync.Mutex
	lastNonce int64

	assetsMu sync.RWMutex
	assets   map[string]int
}

func NewClient(cfg *config.Config) (*Client, error) {
	base := strings.TrimRight(cfg.Hyperliquid.APIURL, "/")
	if base == "" {
		base = MainnetAPIURL
		if cfg.Hyperliquid.Testnet {
			base = TestnetAPIURL
		}
	}

	c := &Client{
		http: resty.New().
			SetBaseURL(base).
			SetTimeout(cfg.Hyperliquid.Timeout).
			SetHeader("Content-Type", "application/json"),
		mainnet: !cfg.Hyperliquid.Testnet,
		assets:  make(map[string]int),
	}

	if cfg.Hyperliquid.PrivateKey != "" {
		key, err := crypto.HexToECDSA(cfg.Hyperliquid.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("parse HYPERLIQUID_PRIVATE_KEY: %w", err)
		}
		c.key = key
	}
	return c, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	span, ctx := tracing.StartSpan(ctx, "hyperliquid.post"+path)
	defer span.Finish()

	raw, err := sonic.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(raw).
		Post(path)
	if err != nil {
		tracing.Fail(span, err)
		return errors.Wrapf(err, "POST %s", path)
	}
	if resp.IsError() {
		err = errors.Errorf("POST %s: http %d: %s", path, resp.StatusCode(), strings.TrimSpace(resp.String()))
		tracing.Fail(span, err)
		return err
	}

	if err := sonic.Unmarshal(resp.Body(), out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}

// nextNonce — миллисекунды, строго возрастающие в пределах процесса.
func (c *Client) nextNonce() int64 {
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()

	n := time.Now().UnixMilli()
	if n <= c.lastNonce {
		n = c.lastNonce + 1
	}
	c.lastNonce = n
	return n
}
