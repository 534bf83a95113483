package inbox_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/labeler"
	"github.com/teemow/inboxbrief/internal/logging"
	"github.com/teemow/inboxbrief/internal/mail"
	"github.com/teemow/inboxbrief/internal/server"
	"github.com/teemow/inboxbrief/internal/tools/common"
)

const accountDescription = "Account name (default: the server's account). Used to manage multiple Google accounts."

// RegisterInboxTools registers the inbox tools with the MCP server.
func RegisterInboxTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	labelRunTool := mcp.NewTool("inbox_label_run",
		mcp.WithDescription("Classify inbox threads with the configured labels and tag them. Returns the decision for every inspected thread."),
		mcp.WithString("account", mcp.Description(accountDescription)),
		mcp.WithBoolean("dry_run", mcp.Description("Classify without changing any labels (default: false)")),
	)
	s.AddTool(labelRunTool, common.InstrumentedToolHandler("inbox_label_run", sc, handleLabelRun(sc)))

	digestRunTool := mcp.NewTool("inbox_digest_run",
		mcp.WithDescription("Summarize recent labeled email and send the digest. With dry_run the digest is returned instead of sent."),
		mcp.WithString("account", mcp.Description(accountDescription)),
		mcp.WithBoolean("dry_run", mcp.Description("Return the digest without sending it (default: false)")),
	)
	s.AddTool(digestRunTool, common.InstrumentedToolHandler("inbox_digest_run", sc, handleDigestRun(sc)))

	classifyTool := mcp.NewTool("inbox_classify",
		mcp.WithDescription("Classify an email given its subject and body using the current label definitions. Nothing in the mailbox changes."),
		mcp.WithString("account", mcp.Description(accountDescription)),
		mcp.WithString("subject", mcp.Required(), mcp.Description("Email subject")),
		mcp.WithString("body", mcp.Description("Email body as plain text")),
		mcp.WithString("attachments", mcp.Description("Comma-separated attachment file names")),
	)
	s.AddTool(classifyTool, common.InstrumentedToolHandler("inbox_classify", sc, handleClassify(sc)))

	configShowTool := mcp.NewTool("inbox_config_show",
		mcp.WithDescription("Show the resolved label definitions and run parameters, including whether defaults were used. The API key is masked."),
		mcp.WithString("account", mcp.Description(accountDescription)),
	)
	s.AddTool(configShowTool, common.InstrumentedToolHandler("inbox_config_show", sc, handleConfigShow(sc)))

	return nil
}

type labelRunResponse struct {
	Run              server.RunInfo `json:"run"`
	Degraded         bool           `json:"degraded"`
	Skipped          bool           `json:"skipped"`
	DryRun           bool           `json:"dry_run"`
	Inspected        int            `json:"inspected"`
	AlreadyProcessed int            `json:"already_processed"`
	Classified       int            `json:"classified"`
	CatchAll         int            `json:"catch_all"`
	Failed           int            `json:"failed"`
	Decisions        []decisionView `json:"decisions,omitempty"`
}

type decisionView struct {
	ThreadID string   `json:"thread_id"`
	Subject  string   `json:"subject"`
	Label    string   `json:"label"`
	Add      []string `json:"add,omitempty"`
	Remove   []string `json:"remove,omitempty"`
	Applied  bool     `json:"applied"`
}

func handleLabelRun(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		account := common.GetAccountFromArgs(request.GetArguments(), sc.Account())

		result, info, err := sc.RunLabel(ctx, server.RunOptions{
			Account: account,
			DryRun:  request.GetBool("dry_run", false),
			Trigger: instrumentation.TriggerMCP,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to run labeling: %v", err)), nil
		}

		r := result.Value
		resp := labelRunResponse{
			Run:              info,
			Degraded:         result.IsDegraded(),
			Skipped:          r.Skipped,
			DryRun:           r.DryRun,
			Inspected:        r.Inspected,
			AlreadyProcessed: r.AlreadyProcessed,
			Classified:       r.Classified,
			CatchAll:         r.CatchAll,
			Failed:           r.Failed,
		}
		for _, d := range r.Decisions {
			resp.Decisions = append(resp.Decisions, decisionView(d))
		}
		return jsonResult(resp)
	}
}

type digestRunResponse struct {
	Run       server.RunInfo `json:"run"`
	Degraded  bool           `json:"degraded"`
	Skipped   bool           `json:"skipped"`
	DryRun    bool           `json:"dry_run"`
	Labels    int            `json:"labels"`
	Emails    int            `json:"emails"`
	Threads   int            `json:"threads"`
	Fallbacks int            `json:"fallbacks"`
	Sent      int            `json:"sent"`
	Failed    int            `json:"failed"`
	Subject   string         `json:"subject,omitempty"`
	Body      string         `json:"body,omitempty"`
}

func handleDigestRun(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		account := common.GetAccountFromArgs(request.GetArguments(), sc.Account())
		dryRun := request.GetBool("dry_run", false)

		// stdout carries the MCP protocol, so the dry run body goes into the
		// response instead.
		result, info, err := sc.RunDigest(ctx, server.RunOptions{
			Account: account,
			DryRun:  dryRun,
			Trigger: instrumentation.TriggerMCP,
			Output:  io.Discard,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to run digest: %v", err)), nil
		}

		r := result.Value
		resp := digestRunResponse{
			Run:       info,
			Degraded:  result.IsDegraded(),
			Skipped:   r.Skipped,
			DryRun:    r.DryRun,
			Labels:    r.Labels,
			Emails:    r.Emails,
			Threads:   r.Threads,
			Fallbacks: r.Fallbacks,
			Sent:      r.Delivery.Sent,
			Failed:    r.Delivery.Failed,
			Subject:   r.Subject,
		}
		if dryRun {
			resp.Body = r.Body
		}
		return jsonResult(resp)
	}
}

type classifyResponse struct {
	Label    string `json:"label"`
	Matched  bool   `json:"matched"`
	Degraded bool   `json:"degraded"`
	Reason   string `json:"reason,omitempty"`
}

func handleClassify(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		account := common.GetAccountFromArgs(args, sc.Account())

		subject := request.GetString("subject", "")
		if subject == "" {
			return mcp.NewToolResultError("subject is required"), nil
		}

		src, err := sc.ConfigSourceForAccount(account)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to load configuration: %v", err)), nil
		}
		params := src.Parameters(ctx).Value
		if !params.HasAPIKey() {
			return mcp.NewToolResultError(config.ErrNoAPIKey.Error()), nil
		}
		labels := src.Labels(ctx).Value

		m := mail.Message{
			Subject:         subject,
			Body:            request.GetString("body", ""),
			AttachmentNames: splitList(request.GetString("attachments", "")),
		}
		catchAll := sc.Defaults().CatchAll
		classifier := labeler.NewClassifier(sc.Completion()(params.APIKey), catchAll, params.MaxWords,
			logging.WithAccount(sc.Logger(), account))
		result := classifier.Classify(ctx, m, labels, params.Model)

		resp := classifyResponse{
			Label:    result.Value,
			Matched:  !result.IsDegraded() && result.Value != catchAll,
			Degraded: result.IsDegraded(),
		}
		if result.Reason != nil {
			resp.Reason = result.Reason.Error()
		}
		return jsonResult(resp)
	}
}

type configShowResponse struct {
	LabelsStatus     string             `json:"labels_status"`
	LabelsReason     string             `json:"labels_reason,omitempty"`
	Labels           []labelView        `json:"labels"`
	ParametersStatus string             `json:"parameters_status"`
	ParametersReason string             `json:"parameters_reason,omitempty"`
	Parameters       parametersView     `json:"parameters"`
	Reserved         reservedLabelsView `json:"reserved_labels"`
}

type labelView struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type parametersView struct {
	EmailCount         int      `json:"emailCount"`
	Model              string   `json:"model"`
	APIKey             string   `json:"apiKey"`
	Resorting          bool     `json:"resorting"`
	Style              string   `json:"style"`
	DayCount           int      `json:"dayCount"`
	MaxWords           int      `json:"maxWords"`
	SummaryDays        int      `json:"summary_days"`
	SummaryCount       int      `json:"summary_count"`
	SummaryTimeMinutes int      `json:"summary_time_minutes"`
	SummaryEmails      []string `json:"summary_emails,omitempty"`
	SummaryPrompt      string   `json:"summary_prompt"`
	SummaryCompression string   `json:"summary_compression"`
}

type reservedLabelsView struct {
	CatchAll  string `json:"catch_all"`
	Processed string `json:"processed"`
}

func newParametersView(p config.Parameters) parametersView {
	apiKey := config.APIKeyPlaceholder
	if p.HasAPIKey() {
		apiKey = logging.SanitizeToken(p.APIKey)
	}
	return parametersView{
		EmailCount:         p.EmailCount,
		Model:              p.Model,
		APIKey:             apiKey,
		Resorting:          p.Resorting,
		Style:              string(p.Style),
		DayCount:           p.DayCount,
		MaxWords:           p.MaxWords,
		SummaryDays:        p.SummaryDays,
		SummaryCount:       p.SummaryCount,
		SummaryTimeMinutes: p.SummaryTimeMinutes,
		SummaryEmails:      p.Recipients(),
		SummaryPrompt:      p.SummaryPrompt,
		SummaryCompression: string(p.SummaryCompression),
	}
}

func handleConfigShow(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		account := common.GetAccountFromArgs(request.GetArguments(), sc.Account())

		src, err := sc.ConfigSourceForAccount(account)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to load configuration: %v", err)), nil
		}
		labels := src.Labels(ctx)
		params := src.Parameters(ctx)

		resp := configShowResponse{
			LabelsStatus:     labels.Status(),
			ParametersStatus: params.Status(),
			Parameters:       newParametersView(params.Value),
			Reserved: reservedLabelsView{
				CatchAll:  sc.Defaults().CatchAll,
				Processed: sc.Defaults().Processed,
			},
		}
		for _, l := range labels.Value.Labels() {
			resp.Labels = append(resp.Labels, labelView(l))
		}
		if labels.Reason != nil {
			resp.LabelsReason = labels.Reason.Error()
		}
		if params.Reason != nil {
			resp.ParametersReason = params.Reason.Error()
		}
		return jsonResult(resp)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
