package syncers

import (
	"context"
	"net"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/sources/httptool"
)

const mergeDNSRecordStatement = `
MERGE (n:` + model.LabelDNSRecord + ` {domain: row.domain})
SET n.record_type = row.record_type,
    n.answer = row.answer,
    n.source = row.source,
    n._sync_status = row._sync_status,
    n.last_seen = row.last_seen`

const mergeDNSResolvesToHostStatement = `
MATCH (n:` + model.LabelDNSRecord + ` {domain: row.domain})
MATCH (h:` + model.LabelHost + ` {internal_ip: row.answer})
MERGE (n)-[:` + model.RelResolvesTo + `]->(h)`

const mergeDNSResolvesToServiceStatement = `
MATCH (n:` + model.LabelDNSRecord + ` {domain: row.domain})
MATCH (svc:` + model.LabelService + ` {name: row.subdomain})
MERGE (n)-[:` + model.RelResolvesTo + `]->(svc)`

// cloudflareNoisePatterns are substrings that mark a Cloudflare DNS record
// as infrastructure noise, filtered out entirely (spec §4.4).
var cloudflareNoisePatterns = []string{
	"wpad", "isatap", "teredo", "_acme-challenge", "_dmarc", "_spf", "_mta-sts",
	"autoconfig", "autodiscover", "_domainkey", "_kerberos", "gc._msdcs",
	"domaindnszones", "forestdnszones",
}

// DNSSyncer merges DNSRecord nodes from AdGuard, Unbound, and Cloudflare,
// filtering Cloudflare infrastructure noise (spec §4.4).
type DNSSyncer struct {
	client    httptool.Client
	servers   []string // adguard, unbound, cloudflare server names, in that order
	store     graph.Store
	lifecycle *lifecycle.Manager
	log       *logrus.Logger
}

func NewDNSSyncer(client httptool.Client, servers []string, store graph.Store, lm *lifecycle.Manager, log *logrus.Logger) *DNSSyncer {
	return &DNSSyncer{client: client, servers: servers, store: store, lifecycle: lm, log: log}
}

func (s *DNSSyncer) Name() string { return "dns" }

func (s *DNSSyncer) Run(ctx context.Context) Result {
	return runSafely(ctx, s.log, s.Name(), s.run)
}

func (s *DNSSyncer) run(ctx context.Context) (int, error) {
	var rows []map[string]interface{}
	var identities []model.Row
	var hostLinkRows []map[string]interface{}
	var svcLinkRows []map[string]interface{}

	for _, server := range s.servers {
		payload := s.client.CallTool(ctx, server, "list_records", nil)
		records := asList(payload, "records")
		isCloudflare := server == "cloudflare"

		for _, rec := range records {
			domain := asString(rec, "domain")
			if domain == "" {
				continue
			}
			if isCloudflare && containsAnyFold(domain, cloudflareNoisePatterns) {
				continue
			}

			answer := asString(rec, "answer")
			recordType := asString(rec, "record_type")

			row := model.Row{"domain": domain, "record_type": recordType, "answer": answer, "source": s.Name()}
			rows = append(rows, model.WithLifecycle(row, nowUTC()))
			identities = append(identities, model.Row{"domain": domain})

			if net.ParseIP(answer) != nil {
				hostLinkRows = append(hostLinkRows, map[string]interface{}{"domain": domain, "answer": answer})
			}

			subdomain := strings.SplitN(domain, ".", 2)[0]
			if len(subdomain) > 3 {
				svcLinkRows = append(svcLinkRows, map[string]interface{}{"domain": domain, "subdomain": subdomain})
			}
		}
	}

	if err := s.store.BatchMerge(ctx, mergeDNSRecordStatement, rows); err != nil {
		return 0, err
	}
	if err := s.lifecycle.MarkActive(ctx, model.LabelDNSRecord, identities); err != nil {
		return 0, err
	}
	if len(hostLinkRows) > 0 {
		if err := s.store.BatchMerge(ctx, mergeDNSResolvesToHostStatement, hostLinkRows); err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Error(err).Fields()).
				Warn("failed to merge DNS-resolves-to-host edges")
		}
	}
	if len(svcLinkRows) > 0 {
		if err := s.store.BatchMerge(ctx, mergeDNSResolvesToServiceStatement, svcLinkRows); err != nil {
			s.log.WithFields(logging.NewFields().Component("syncer").Source(s.Name()).Error(err).Fields()).
				Warn("failed to merge DNS-resolves-to-service edges")
		}
	}
	return len(rows), nil
}
