package provisioner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	paneldomain "github.com/smallbiznis/netbill/internal/panel/domain"
	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// HTTPProvisioner drives panels over their JSON admin APIs. Each panel row
// carries its own base URL and API key, so one client serves every panel
// regardless of vendor.
type HTTPProvisioner struct {
	client *http.Client
	log    *zap.Logger
}

func NewHTTPProvisioner(log *zap.Logger) *HTTPProvisioner {
	return &HTTPProvisioner{
		client: &http.Client{Timeout: defaultTimeout},
		log:    log.Named("provisioner"),
	}
}

func (p *HTTPProvisioner) Enable(ctx context.Context, panel paneldomain.Panel, panelUserID string) error {
	return p.call(ctx, panel, http.MethodPost, "/api/users/"+panelUserID+"/enable", nil)
}

func (p *HTTPProvisioner) Disable(ctx context.Context, panel paneldomain.Panel, panelUserID string) error {
	return p.call(ctx, panel, http.MethodPost, "/api/users/"+panelUserID+"/disable", nil)
}

func (p *HTTPProvisioner) ResetTraffic(ctx context.Context, panel paneldomain.Panel, panelUserID string) error {
	return p.call(ctx, panel, http.MethodPost, "/api/users/"+panelUserID+"/reset", nil)
}

func (p *HTTPProvisioner) Remove(ctx context.Context, panel paneldomain.Panel, panelUserID string) error {
	return p.call(ctx, panel, http.MethodDelete, "/api/users/"+panelUserID, nil)
}

func (p *HTTPProvisioner) call(ctx context.Context, panel paneldomain.Panel, method, path string, payload any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	url := strings.TrimRight(panel.APIURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+panel.APIKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.log.Warn("panel call failed",
			zap.String("panel", panel.Name),
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("panel %s: %s %s returned %d", panel.Name, method, path, resp.StatusCode)
	}
	return nil
}
