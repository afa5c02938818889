// Package simulation walks ARS scenario flowcharts the way a caller would
// experience them: one node at a time, driven by explicit actions.
package simulation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"ars-backend/internal/helper"
)

// Engine statuses.
const (
	StatusIdle        = "idle"
	StatusActive      = "active"
	StatusCompleted   = "completed"
	StatusTransferred = "transferred"
)

var (
	ErrNotActive     = errors.New("simulation is not active")
	ErrNodeNotFound  = errors.New("node not found")
	ErrNoStartNode   = errors.New("scenario has no start node")
	ErrInvalidBranch = errors.New("invalid branch selection")
	ErrInvalidInput  = errors.New("invalid input value")
	ErrUnknownAction = errors.New("unsupported action for node type")
)

type Node struct {
	NodeID   string                 `json:"node_id"`
	NodeType string                 `json:"node_type"`
	Name     string                 `json:"name"`
	Config   map[string]interface{} `json:"config"`
}

type Connection struct {
	SourceNodeID string `json:"source_node_id"`
	TargetNodeID string `json:"target_node_id"`
	Label        string `json:"label,omitempty"`
}

// Graph is the scenario structure the engine walks. It is loaded once from
// the database when a simulation starts; later edits to the scenario do not
// affect running sessions.
type Graph struct {
	ScenarioID  int64        `json:"scenario_id"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}

func (g *Graph) Node(nodeID string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].NodeID == nodeID {
			return &g.Nodes[i]
		}
	}
	return nil
}

// NextNode returns the target of the first outgoing connection.
func (g *Graph) NextNode(nodeID string) string {
	for _, conn := range g.Connections {
		if conn.SourceNodeID == nodeID {
			return conn.TargetNodeID
		}
	}
	return ""
}

// StartNodeID returns the node_id of the graph's start node.
func (g *Graph) StartNodeID() (string, error) {
	for _, n := range g.Nodes {
		if n.NodeType == "start" {
			return n.NodeID, nil
		}
	}
	return "", ErrNoStartNode
}

type Step struct {
	Timestamp  time.Time              `json:"timestamp"`
	NodeID     string                 `json:"node_id"`
	ActionType string                 `json:"action_type"`
	Value      interface{}            `json:"value,omitempty"`
	Extra      map[string]interface{} `json:"extra,omitempty"`
}

type Action struct {
	Type      string `json:"type"`
	Key       string `json:"key,omitempty"`
	Label     string `json:"label,omitempty"`
	InputType string `json:"input_type,omitempty"`
}

type NodeState struct {
	NodeID   string                 `json:"node_id"`
	NodeType string                 `json:"node_type"`
	Name     string                 `json:"name"`
	Config   map[string]interface{} `json:"config"`
}

type State struct {
	CurrentNode      NodeState              `json:"current_node"`
	AvailableActions []Action               `json:"available_actions"`
	SessionData      map[string]interface{} `json:"session_data"`
	Status           string                 `json:"status"`
	ExecutionTime    float64                `json:"execution_time"`
}

// Engine runs a single simulation session. All methods are safe for
// concurrent use.
type Engine struct {
	mu          sync.Mutex
	graph       *Graph
	currentNode string
	status      string
	sessionData map[string]interface{}
	history     []Step
	startTime   time.Time
}

func NewEngine(graph *Graph) *Engine {
	return &Engine{
		graph:       graph,
		status:      StatusIdle,
		sessionData: map[string]interface{}{},
	}
}

// Start (re)initializes the session at the given node. Also used for reset.
func (e *Engine) Start(startNodeID string) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.graph.Node(startNodeID) == nil {
		return State{}, fmt.Errorf("%w: %s", ErrNodeNotFound, startNodeID)
	}

	e.currentNode = startNodeID
	e.status = StatusActive
	e.sessionData = map[string]interface{}{}
	e.history = nil
	e.startTime = time.Now()

	return e.stateLocked(), nil
}

// Restart drops session state and begins again at the graph's start node.
func (e *Engine) Restart() (State, error) {
	startNodeID, err := e.graph.StartNodeID()
	if err != nil {
		return State{}, err
	}
	return e.Start(startNodeID)
}

func (e *Engine) ScenarioID() int64 {
	return e.graph.ScenarioID
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Engine) History() []Step {
	e.mu.Lock()
	defer e.mu.Unlock()

	steps := make([]Step, len(e.history))
	copy(steps, e.history)
	return steps
}

func (e *Engine) Elapsed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.startTime.IsZero() {
		return 0
	}
	return time.Since(e.startTime).Seconds()
}

// Execute applies one caller action to the current node and advances the
// session. Every call is appended to the execution history, including ones
// that end up rejected.
func (e *Engine) Execute(actionType string, value interface{}, extra map[string]interface{}) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusActive {
		return State{}, ErrNotActive
	}

	node := e.graph.Node(e.currentNode)
	if node == nil {
		return State{}, fmt.Errorf("%w: %s", ErrNodeNotFound, e.currentNode)
	}

	e.history = append(e.history, Step{
		Timestamp:  time.Now(),
		NodeID:     e.currentNode,
		ActionType: actionType,
		Value:      value,
		Extra:      extra,
	})

	var err error
	switch node.NodeType {
	case "start", "message":
		err = e.handleMessage(actionType)
	case "branch":
		err = e.handleBranch(node, actionType, value)
	case "input":
		err = e.handleInput(node, actionType, value)
	case "transfer":
		err = e.handleTransfer(node, actionType)
	case "end":
		e.status = StatusCompleted
		e.sessionData["completion_time"] = time.Now().UTC().Format(time.RFC3339)
	default:
		err = fmt.Errorf("%w: %s on %s node", ErrUnknownAction, actionType, node.NodeType)
	}

	if err != nil {
		return State{}, err
	}

	return e.stateLocked(), nil
}

func (e *Engine) handleMessage(actionType string) error {
	if actionType != "continue" {
		return fmt.Errorf("%w: %s on message node", ErrUnknownAction, actionType)
	}

	e.advance()
	return nil
}

func (e *Engine) handleBranch(node *Node, actionType string, value interface{}) error {
	if actionType != "select" {
		return fmt.Errorf("%w: %s on branch node", ErrUnknownAction, actionType)
	}

	selected := fmt.Sprintf("%v", value)
	for _, branch := range branchesOf(node) {
		if branch.key == selected {
			if branch.target == "" {
				return fmt.Errorf("%w: branch %s has no target", ErrInvalidBranch, selected)
			}
			e.currentNode = branch.target
			e.sessionData["branch_"+node.NodeID+"_selection"] = selected
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrInvalidBranch, selected)
}

func (e *Engine) handleInput(node *Node, actionType string, value interface{}) error {
	if actionType != "input" {
		return fmt.Errorf("%w: %s on input node", ErrUnknownAction, actionType)
	}

	inputType, _ := node.Config["input_type"].(string)
	if inputType == "" {
		inputType = "text"
	}

	if !validInput(value, inputType) {
		return fmt.Errorf("%w: %v is not a valid %s", ErrInvalidInput, value, inputType)
	}

	e.sessionData["input_"+node.NodeID] = value
	e.advance()
	return nil
}

func (e *Engine) handleTransfer(node *Node, actionType string) error {
	if actionType != "transfer" {
		return fmt.Errorf("%w: %s on transfer node", ErrUnknownAction, actionType)
	}

	target, _ := node.Config["target"].(string)
	if target == "" {
		target = "general"
	}

	e.sessionData["transfer_target"] = target
	e.sessionData["transfer_time"] = time.Now().UTC().Format(time.RFC3339)
	e.status = StatusTransferred
	return nil
}

// advance follows the first outgoing connection; a dead end completes the
// session.
func (e *Engine) advance() {
	next := e.graph.NextNode(e.currentNode)
	if next == "" {
		e.status = StatusCompleted
		return
	}
	e.currentNode = next
}

func (e *Engine) stateLocked() State {
	// Callers serialize the returned state after the lock is released, so the
	// session map has to be a snapshot, not the live one.
	data := make(map[string]interface{}, len(e.sessionData))
	for k, v := range e.sessionData {
		data[k] = v
	}

	state := State{
		SessionData:   data,
		Status:        e.status,
		ExecutionTime: time.Since(e.startTime).Seconds(),
	}

	node := e.graph.Node(e.currentNode)
	if node != nil {
		cfg := node.Config
		if cfg == nil {
			cfg = map[string]interface{}{}
		}
		state.CurrentNode = NodeState{
			NodeID:   node.NodeID,
			NodeType: node.NodeType,
			Name:     node.Name,
			Config:   cfg,
		}
		state.AvailableActions = actionsFor(node)
	}

	return state
}

func actionsFor(node *Node) []Action {
	switch node.NodeType {
	case "start", "message":
		return []Action{{Type: "continue", Label: "Continue"}}
	case "branch":
		actions := []Action{}
		for _, branch := range branchesOf(node) {
			actions = append(actions, Action{Type: "select", Key: branch.key, Label: branch.label})
		}
		return actions
	case "input":
		inputType, _ := node.Config["input_type"].(string)
		if inputType == "" {
			inputType = "text"
		}
		prompt, _ := node.Config["prompt"].(string)
		if prompt == "" {
			prompt = "Enter a value"
		}
		return []Action{{Type: "input", InputType: inputType, Label: prompt}}
	case "transfer":
		return []Action{{Type: "transfer", Label: "Transfer to agent"}}
	case "end":
		return []Action{{Type: "end", Label: "End call"}}
	}
	return []Action{}
}

type branchOption struct {
	key    string
	label  string
	target string
}

func branchesOf(node *Node) []branchOption {
	raw, _ := node.Config["branches"].([]interface{})

	options := []branchOption{}
	for _, entry := range raw {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}

		opt := branchOption{}
		if v, ok := m["key"]; ok {
			opt.key = fmt.Sprintf("%v", v)
		}
		opt.label, _ = m["label"].(string)
		opt.target, _ = m["target"].(string)
		options = append(options, opt)
	}

	return options
}

func validInput(value interface{}, inputType string) bool {
	switch inputType {
	case "text":
		s, ok := value.(string)
		return ok && strings.TrimSpace(s) != ""
	case "number":
		switch v := value.(type) {
		case float64, int, int64:
			_ = v
			return true
		case string:
			_, err := strconv.ParseFloat(v, 64)
			return err == nil
		}
		return false
	case "phone":
		return helper.IsValidPhone(fmt.Sprintf("%v", value))
	}
	return true
}
