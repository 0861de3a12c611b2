package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/upstarter/engram/internal/engine"
	"github.com/upstarter/engram/internal/notify"
	"github.com/upstarter/engram/pkg/errs"
	"github.com/upstarter/engram/pkg/types"
)

// Server implements the Model Context Protocol for the memory core: the
// nine-tool surface plus the smart_complete stub (§6).
type Server struct {
	eng    *engine.Engine
	logger *log.Logger
	state  *notify.StateCache
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithLogger injects a *log.Logger; defaults to one writing to stderr.
func WithLogger(l *log.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithStateCache wires a notify.StateCache kept current by a StateWatcher,
// so the ~/.spc/... reads below (§6) are served from memory instead of a
// disk read on every tool call. Without this option each read falls back to
// a direct, synchronous read of its file, which is still correct — just
// uncached.
func WithStateCache(c *notify.StateCache) ServerOption {
	return func(s *Server) {
		s.state = c
	}
}

// NewServer creates a new MCP server wrapping a constructed Engine.
func NewServer(eng *engine.Engine, opts ...ServerOption) *Server {
	s := &Server{
		eng:    eng,
		logger: log.New(os.Stderr, "engram-mcp: ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleRequest processes a single JSON-RPC 2.0 request and returns the
// encoded response. This is the transport-agnostic entry point called by
// StdioTransport.Serve for each line.
func (s *Server) HandleRequest(ctx context.Context, requestJSON []byte) ([]byte, error) {
	var req JSONRPCRequest
	if err := json.Unmarshal(requestJSON, &req); err != nil {
		return s.errorResponse(nil, ErrCodeParseError, "Parse error", err)
	}

	if req.JSONRPC != "2.0" {
		return s.errorResponse(req.ID, ErrCodeInvalidRequest, "Invalid JSON-RPC version", nil)
	}

	var result interface{}
	var err error

	switch req.Method {
	case "initialize":
		result, err = s.handleInitialize(ctx, req.Params)
	case "initialized":
		result = map[string]interface{}{}
	case "tools/list":
		result, err = s.handleToolsList(ctx, req.Params)
	case "tools/call":
		result, err = s.handleToolsCall(ctx, req.Params)
	default:
		return s.errorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil)
	}

	if err != nil {
		return s.errorResponse(req.ID, ErrCodeServerError, err.Error(), nil)
	}
	return s.successResponse(req.ID, result)
}

func (s *Server) handleInitialize(ctx context.Context, params interface{}) (interface{}, error) {
	return MCPInitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: MCPServerCapabilities{
			Tools: &MCPToolsCapability{},
		},
		ServerInfo: MCPServerInfo{
			Name:    "engram",
			Version: "1.0.0",
		},
	}, nil
}

func (s *Server) handleToolsList(ctx context.Context, params interface{}) (interface{}, error) {
	return MCPToolsListResult{Tools: s.buildToolsList()}, nil
}

// handleToolsCall dispatches a tools/call request to the tool named in
// p.Name and wraps the result in the MCP content envelope, prefixing the
// text payload with ✓ on success or ✗ on failure (§7).
func (s *Server) handleToolsCall(ctx context.Context, params interface{}) (interface{}, error) {
	var p MCPToolCallParams
	if err := s.unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	argsJSON, err := json.Marshal(p.Arguments)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal arguments: %w", err)
	}

	var result interface{}
	var handlerErr error

	switch p.Name {
	case "remember":
		result, handlerErr = s.callRemember(ctx, argsJSON)
	case "recall":
		result, handlerErr = s.callRecall(ctx, argsJSON)
	case "context":
		result, handlerErr = s.callContext(ctx, argsJSON)
	case "related":
		result, handlerErr = s.callRelated(ctx, argsJSON)
	case "consolidate":
		result, handlerErr = s.callConsolidate(ctx, argsJSON)
	case "link":
		result, handlerErr = s.callLink(ctx, argsJSON)
	case "entity":
		result, handlerErr = s.callEntity(ctx, argsJSON)
	case "validate":
		result, handlerErr = s.callValidate(ctx, argsJSON)
	case "graph":
		result, handlerErr = s.callGraph(ctx, argsJSON)
	case "smart_complete":
		result = SmartCompleteResult{Status: "unavailable", Reason: "smart_complete is outside the memory core"}
	default:
		return &MCPToolCallResult{
			Content: []MCPToolCallContent{{Type: "text", Text: fmt.Sprintf("✗ unknown tool: %s", p.Name)}},
			IsError: true,
		}, nil
	}

	if handlerErr != nil {
		return &MCPToolCallResult{
			Content: []MCPToolCallContent{{Type: "text", Text: "✗ " + handlerErr.Error()}},
			IsError: true,
		}, nil
	}

	text, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &MCPToolCallResult{
		Content: []MCPToolCallContent{{Type: "text", Text: "✓ " + string(text)}},
	}, nil
}

// ---------------------------------------------------------------------------
// Filesystem state inputs (§6): read-only, best-effort, missing → "".
// ---------------------------------------------------------------------------

func spcStatePath(rel string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".spc", rel)
}

func readTrimmedFile(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// currentRole reads ~/.spc/projects/state/current_role, best-effort,
// preferring s.state when a StateWatcher keeps one current.
func (s *Server) currentRole() string {
	if s.state != nil {
		return s.state.CurrentRole()
	}
	return readTrimmedFile(spcStatePath(filepath.Join("projects", "state", "current_role")))
}

// sessionIDFromState reads ~/.spc/projects/state/session_id, best-effort,
// preferring s.state when a StateWatcher keeps one current.
func (s *Server) sessionIDFromState() string {
	if s.state != nil {
		return s.state.SessionID()
	}
	return readTrimmedFile(spcStatePath(filepath.Join("projects", "state", "session_id")))
}

// activeProject reads ~/.spc/active_project (JSON with a "name" field),
// best-effort, preferring s.state when a StateWatcher keeps one current.
func (s *Server) activeProject() string {
	if s.state != nil {
		return s.state.ActiveProject()
	}
	data, err := os.ReadFile(spcStatePath("active_project"))
	if err != nil {
		return ""
	}
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.Name
}

// ---------------------------------------------------------------------------
// Tool handlers
// ---------------------------------------------------------------------------

func (s *Server) callRemember(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var args RememberArgs
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return nil, errs.Validation("remember: bad arguments: %v", err)
	}
	if args.Content == "" {
		return nil, errs.Validation("remember: content is required")
	}

	project := args.Project
	if project == "" {
		project = s.activeProject()
	}
	sourceRole := args.SourceRole
	if sourceRole == "" {
		sourceRole = s.currentRole()
	}
	memoryType := types.MemoryType(args.MemoryType)
	if memoryType == "" {
		memoryType = types.MemoryTypeFact
	}
	importance := 0.5
	if args.Importance != nil {
		importance = *args.Importance
	}

	if !args.Confirmed {
		return &RememberResult{
			Status:  "preview",
			Preview: renderRememberPreview(args, project, sourceRole, string(memoryType), importance),
		}, nil
	}

	metadata := args.Metadata
	if len(args.Tags) > 0 {
		if metadata == nil {
			metadata = map[string]interface{}{}
		}
		metadata["tags"] = args.Tags
	}

	opts := engine.RememberOptions{
		Project:        project,
		SourceRole:     sourceRole,
		Metadata:       metadata,
		Tags:           args.Tags,
		CheckConflicts: args.CheckConflicts,
		Supersede:      args.Supersede,
		CreatedBy:      types.CreatedByUser,
		SessionID:      s.sessionIDFromState(),
	}

	res, err := s.eng.Remember(ctx, args.Content, memoryType, importance, opts)
	if err != nil {
		return nil, err
	}
	if res.HasConflicts() {
		conflicts := make([]ConflictPayload, len(res.Conflicts))
		for i, c := range res.Conflicts {
			conflicts[i] = ConflictPayload{
				ID:             c.Memory.ID,
				Content:        c.Memory.Content,
				MemoryType:     string(c.Memory.MemoryType),
				Similarity:     c.Similarity,
				ConflictReason: c.ConflictReason,
			}
		}
		return &RememberResult{Status: "conflicts_found", Conflicts: conflicts}, nil
	}
	return &RememberResult{Status: "stored", ID: res.ID}, nil
}

func renderRememberPreview(args RememberArgs, project, sourceRole, memoryType string, importance float64) string {
	var b strings.Builder
	b.WriteString("### remember preview (not yet written — call again with confirmed=true)\n\n")
	fmt.Fprintf(&b, "- **content**: %s\n", args.Content)
	fmt.Fprintf(&b, "- **memory_type**: %s\n", memoryType)
	fmt.Fprintf(&b, "- **importance**: %.2f\n", importance)
	if project != "" {
		fmt.Fprintf(&b, "- **project**: %s\n", project)
	}
	if sourceRole != "" {
		fmt.Fprintf(&b, "- **source_role**: %s\n", sourceRole)
	}
	if len(args.Supersede) > 0 {
		fmt.Fprintf(&b, "- **supersedes**: %s\n", strings.Join(args.Supersede, ", "))
	}
	if args.CheckConflicts {
		b.WriteString("- **check_conflicts**: true\n")
	}
	return b.String()
}

func (s *Server) callRecall(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var args RecallArgs
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return nil, errs.Validation("recall: bad arguments: %v", err)
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}
	currentRoleVal := args.CurrentRole
	if currentRoleVal == "" {
		currentRoleVal = s.currentRole()
	}
	hybrid := true
	if args.HybridSearch != nil {
		hybrid = *args.HybridSearch
	}

	var memTypes []types.MemoryType
	for _, t := range args.MemoryTypes {
		memTypes = append(memTypes, types.MemoryType(t))
	}

	opts := engine.RecallOptions{
		Limit:        limit,
		Project:      args.Project,
		ProjectSet:   args.Project != "",
		MemoryTypes:  memTypes,
		CurrentRole:  currentRoleVal,
		HybridSearch: hybrid,
	}

	results, err := s.eng.Recall(ctx, args.Query, opts)
	if err != nil {
		return nil, err
	}
	return &RecallResult{Results: toMemoryPayloads(results), Count: len(results)}, nil
}

func (s *Server) callContext(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var args ContextArgs
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return nil, errs.Validation("context: bad arguments: %v", err)
	}
	cwd := args.Cwd
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 5
	}
	currentRoleVal := args.CurrentRole
	if currentRoleVal == "" {
		currentRoleVal = s.currentRole()
	}

	opts := engine.ContextOptions{
		Cwd:         cwd,
		Limit:       limit,
		CurrentRole: currentRoleVal,
	}
	results, err := s.eng.Context(ctx, args.Query, opts)
	if err != nil {
		return nil, err
	}
	return &ContextResult{Results: toMemoryPayloads(results), Count: len(results)}, nil
}

func toMemoryPayloads(results []engine.RecallResult) []MemoryPayload {
	out := make([]MemoryPayload, len(results))
	for i, r := range results {
		out[i] = MemoryPayload{
			ID:             r.ID,
			Content:        r.Content,
			MemoryType:     string(r.MemoryType),
			Project:        r.Project,
			SourceRole:     r.SourceRole,
			Importance:     r.Importance,
			Relevance:      r.Relevance,
			Similarity:     r.Similarity,
			Freshness:      r.Freshness,
			RoleAffinity:   r.RoleAffinity,
			KeywordBoost:   r.KeywordBoost,
			KeywordMatches: r.KeywordMatches,
			AccessCount:    r.AccessCount,
			CreatedAt:      r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	return out
}

func (s *Server) callRelated(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var args RelatedArgs
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return nil, errs.Validation("related: bad arguments: %v", err)
	}
	if args.ID == "" {
		return nil, errs.Validation("related: id is required")
	}
	depth := args.Depth
	if depth <= 0 {
		depth = 1
	}
	ids, err := s.eng.Related(ctx, args.ID, depth)
	if err != nil {
		return nil, err
	}
	return &RelatedResult{IDs: ids, Count: len(ids)}, nil
}

func (s *Server) callConsolidate(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var args ConsolidateArgs
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return nil, errs.Validation("consolidate: bad arguments: %v", err)
	}

	if len(args.IDs) == 0 {
		threshold := args.Threshold
		if threshold <= 0 {
			threshold = 0.85
		}
		minCluster := args.MinCluster
		if minCluster <= 0 {
			minCluster = 3
		}
		clusters, err := s.eng.FindCandidates(ctx, threshold, minCluster)
		if err != nil {
			return nil, err
		}
		out := make([]ClusterPayload, len(clusters))
		for i, c := range clusters {
			out[i] = ClusterPayload{IDs: c.IDs, Topic: c.Topic, Size: c.Size}
		}
		return &ConsolidateResult{Clusters: out}, nil
	}

	if args.Content == "" {
		return nil, errs.Validation("consolidate: content is required when ids is set")
	}
	memoryType := types.MemoryType(args.MemoryType)
	if memoryType == "" {
		memoryType = types.MemoryTypePattern
	}
	importance := 0.8
	if args.Importance != nil {
		importance = *args.Importance
	}

	id, err := s.eng.Consolidate(ctx, args.IDs, args.Content, memoryType, importance, engine.RememberOptions{})
	if err != nil {
		return nil, err
	}
	return &ConsolidateResult{ID: id}, nil
}

func (s *Server) callLink(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var args LinkArgs
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return nil, errs.Validation("link: bad arguments: %v", err)
	}
	if args.FromID == "" || args.ToID == "" || args.RelationType == "" {
		return nil, errs.Validation("link: from_id, to_id, and relation_type are required")
	}
	strength := args.Strength
	if strength == 0 {
		strength = 1.0
	}
	confidence := args.Confidence
	if confidence == 0 {
		confidence = 1.0
	}
	if err := s.eng.Link(args.FromID, args.ToID, types.RelationType(args.RelationType), strength, confidence, args.Evidence, args.Bidirectional); err != nil {
		return nil, err
	}
	return &LinkResult{Linked: true}, nil
}

func (s *Server) callEntity(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var args EntityArgs
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return nil, errs.Validation("entity: bad arguments: %v", err)
	}
	if args.EntityType == "" || args.Name == "" {
		return nil, errs.Validation("entity: entity_type and name are required")
	}
	status := types.EntityStatus(args.Status)
	if status == "" {
		status = types.EntityStatusActive
	}
	id, err := s.eng.AddEntity(types.EntityType(args.EntityType), args.Name, status, types.Priority(args.Priority), args.Description)
	if err != nil {
		return nil, err
	}
	return &EntityResult{ID: id}, nil
}

func (s *Server) callValidate(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var args ValidateArgs
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return nil, errs.Validation("validate: bad arguments: %v", err)
	}
	if args.ID == "" {
		return nil, errs.Validation("validate: id is required")
	}
	action := args.Action
	if action == "" {
		action = "validate"
	}

	switch action {
	case "validate":
		if err := s.eng.ValidateMemory(ctx, args.ID); err != nil {
			return nil, err
		}
	case "supersede":
		if args.NewID == "" {
			return nil, errs.Validation("validate: new_id is required for action=supersede")
		}
		if err := s.eng.Supersede(ctx, args.NewID, args.ID); err != nil {
			return nil, err
		}
	case "delete":
		if err := s.eng.Delete(ctx, args.ID); err != nil {
			return nil, err
		}
	case "update":
		opts := engine.UpdateOptions{}
		if args.Content != "" {
			opts.Content = &args.Content
		}
		if args.MemoryType != "" {
			mt := types.MemoryType(args.MemoryType)
			opts.MemoryType = &mt
		}
		if args.Importance != nil {
			opts.Importance = args.Importance
		}
		if err := s.eng.Update(ctx, args.ID, opts); err != nil {
			return nil, err
		}
	default:
		return nil, errs.Validation("validate: unknown action %q", action)
	}
	return &ValidateResult{OK: true}, nil
}

func (s *Server) callGraph(ctx context.Context, argsJSON []byte) (interface{}, error) {
	var args GraphArgs
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return nil, errs.Validation("graph: bad arguments: %v", err)
	}
	if args.Kind == "" {
		return nil, errs.Validation("graph: kind is required")
	}

	switch args.Kind {
	case "stats":
		stats, err := s.eng.GetStats(ctx)
		if err != nil {
			return nil, err
		}
		return &GraphResult{Data: stats}, nil
	case "validation_candidates":
		limit := args.Limit
		if limit <= 0 {
			limit = 10
		}
		candidates, err := s.eng.ValidationCandidates(ctx, limit)
		if err != nil {
			return nil, err
		}
		return &GraphResult{Data: candidates}, nil
	case "prune_candidates":
		limit := args.Limit
		if limit <= 0 {
			limit = 10
		}
		candidates, err := s.eng.PruneCandidates(ctx, limit)
		if err != nil {
			return nil, err
		}
		return &GraphResult{Data: candidates}, nil
	default:
		data, err := s.eng.GraphQuery(args.Kind, args.ID, args.Limit)
		if err != nil {
			return nil, err
		}
		return &GraphResult{Data: data}, nil
	}
}

// ---------------------------------------------------------------------------
// Tool schema catalog
// ---------------------------------------------------------------------------

func (s *Server) buildToolsList() []MCPTool {
	return []MCPTool{
		{
			Name: "remember",
			Description: "Store a new memory. Returns a markdown preview unless confirmed=true is passed, " +
				"in which case it runs the contradiction scan (if check_conflicts=true) and writes the memory.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"content"},
				"properties": map[string]interface{}{
					"content":         map[string]interface{}{"type": "string", "description": "The memory content to store (required)"},
					"memory_type":     map[string]interface{}{"type": "string", "description": "fact, decision, preference, pattern, solution, philosophy (default fact)"},
					"importance":      map[string]interface{}{"type": "number", "description": "0.0-1.0, clamped (default 0.5)"},
					"project":         map[string]interface{}{"type": "string", "description": "Project scope; falls back to the active project state file"},
					"source_role":     map[string]interface{}{"type": "string", "description": "Role storing this memory; falls back to the current role state file"},
					"metadata":        map[string]interface{}{"type": "object", "description": "Arbitrary caller metadata"},
					"tags":            map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"check_conflicts": map[string]interface{}{"type": "boolean", "description": "Run the contradiction scan before writing"},
					"supersede":       map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Ids this memory replaces"},
					"confirmed":       map[string]interface{}{"type": "boolean", "description": "Must be true to actually perform the write"},
				},
			},
		},
		{
			Name:        "recall",
			Description: "Hybrid vector + keyword search over active memories, scored by the composite relevance formula.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"query"},
				"properties": map[string]interface{}{
					"query":         map[string]interface{}{"type": "string", "description": "Search query (required)"},
					"limit":         map[string]interface{}{"type": "integer", "description": "Max results (default 10)"},
					"project":       map[string]interface{}{"type": "string", "description": "Restrict to a project"},
					"memory_types":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"current_role":  map[string]interface{}{"type": "string", "description": "Used for the role-affinity score term"},
					"hybrid_search": map[string]interface{}{"type": "boolean", "description": "Enable keyword boost (default true)"},
				},
			},
		},
		{
			Name:        "context",
			Description: "Like recall, but detects a project from a working directory and merges project-scoped and universal memories.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query":        map[string]interface{}{"type": "string"},
					"cwd":          map[string]interface{}{"type": "string", "description": "Defaults to the server process's working directory"},
					"limit":        map[string]interface{}{"type": "integer", "description": "Default 5"},
					"current_role": map[string]interface{}{"type": "string"},
				},
			},
		},
		{
			Name:        "related",
			Description: "Graph-reachable ids from a memory or entity within a hop count (capped at 2).",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"id"},
				"properties": map[string]interface{}{
					"id":    map[string]interface{}{"type": "string"},
					"depth": map[string]interface{}{"type": "integer", "description": "Default 1, capped at 2"},
				},
			},
		},
		{
			Name: "consolidate",
			Description: "Without ids: find consolidation candidate clusters (threshold/min_cluster). " +
				"With ids: merge them into one new memory and archive the originals from search.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"ids":         map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"content":     map[string]interface{}{"type": "string", "description": "Required when ids is set"},
					"memory_type": map[string]interface{}{"type": "string", "description": "Default pattern"},
					"importance":  map[string]interface{}{"type": "number", "description": "Default 0.8"},
					"threshold":   map[string]interface{}{"type": "number", "description": "find_candidates only; default 0.85"},
					"min_cluster": map[string]interface{}{"type": "integer", "description": "find_candidates only; default 3"},
				},
			},
		},
		{
			Name:        "link",
			Description: "Add a relationship edge between two existing graph nodes (memories or entities).",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"from_id", "to_id", "relation_type"},
				"properties": map[string]interface{}{
					"from_id":       map[string]interface{}{"type": "string"},
					"to_id":         map[string]interface{}{"type": "string"},
					"relation_type": map[string]interface{}{"type": "string"},
					"strength":      map[string]interface{}{"type": "number", "description": "Default 1.0"},
					"confidence":    map[string]interface{}{"type": "number", "description": "Default 1.0"},
					"evidence":      map[string]interface{}{"type": "string"},
					"bidirectional": map[string]interface{}{"type": "boolean"},
				},
			},
		},
		{
			Name:        "entity",
			Description: "Add or update a standalone graph entity (goal, blocker, tool, concept, ...), idempotent on (entity_type, name).",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"entity_type", "name"},
				"properties": map[string]interface{}{
					"entity_type": map[string]interface{}{"type": "string"},
					"name":        map[string]interface{}{"type": "string"},
					"status":      map[string]interface{}{"type": "string", "description": "Default active"},
					"priority":    map[string]interface{}{"type": "string"},
					"description": map[string]interface{}{"type": "string"},
				},
			},
		},
		{
			Name:        "validate",
			Description: "Lifecycle operations on a memory: validate (default), supersede, delete, update.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"id"},
				"properties": map[string]interface{}{
					"action":      map[string]interface{}{"type": "string", "description": "validate | supersede | delete | update"},
					"id":          map[string]interface{}{"type": "string"},
					"new_id":      map[string]interface{}{"type": "string", "description": "Required for action=supersede"},
					"content":     map[string]interface{}{"type": "string", "description": "action=update"},
					"memory_type": map[string]interface{}{"type": "string", "description": "action=update"},
					"importance":  map[string]interface{}{"type": "number", "description": "action=update"},
				},
			},
		},
		{
			Name: "graph",
			Description: "Knowledge Graph queries (blockers, requirements, contradictions, memories_by_entity, hub_entities, " +
				"current_version, visualize) and engine-level aggregate views (stats, validation_candidates, prune_candidates).",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"kind"},
				"properties": map[string]interface{}{
					"kind":  map[string]interface{}{"type": "string"},
					"id":    map[string]interface{}{"type": "string"},
					"limit": map[string]interface{}{"type": "integer"},
				},
			},
		},
		{
			Name:        "smart_complete",
			Description: "Stub: smart_complete is outside the memory core and always returns an unavailable status.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"prompt": map[string]interface{}{"type": "string"}},
			},
		},
	}
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

func (s *Server) unmarshalParams(params interface{}, dest interface{}) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal params: %w", err)
	}
	return nil
}

func (s *Server) successResponse(id interface{}, result interface{}) ([]byte, error) {
	resp := JSONRPCResponse{JSONRPC: "2.0", Result: result, ID: id}
	return json.Marshal(resp)
}

func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) ([]byte, error) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		Error:   &JSONRPCError{Code: code, Message: message, Data: data},
		ID:      id,
	}
	return json.Marshal(resp)
}
