package engine

import "testing"

func analyzeListeners(t *testing.T, source string, moduleLevelOnly bool) []Violation {
	t.Helper()
	ctx, root := newTestContext(t, "socket.js", source)
	return AnalyzeListeners(ctx, root, moduleLevelOnly)
}

func TestAnalyzeListeners_MissingRequiredEvents(t *testing.T) {
	source := `import WebSocket from 'ws';
const socket = new WebSocket('wss://example.com');
socket.on('open', () => socket.send('hello'));`
	violations := analyzeListeners(t, source, false)

	if len(violations) != 2 {
		t.Fatalf("expected missing error and close listeners, got %+v", violations)
	}
	// contract declaration order: error first, then close
	if violations[0].PostconditionID != "missing-error-listener" || violations[0].Severity != "error" {
		t.Errorf("unexpected first violation %+v", violations[0])
	}
	if violations[1].PostconditionID != "missing-close-listener" || violations[1].Severity != "warning" {
		t.Errorf("unexpected second violation %+v", violations[1])
	}
	if violations[0].Line != 2 {
		t.Errorf("violation should point at the construction site, got line %d", violations[0].Line)
	}
}

func TestAnalyzeListeners_AttachedViaOnce(t *testing.T) {
	source := `import WebSocket from 'ws';
const socket = new WebSocket('wss://example.com');
socket.once('error', err => report(err));
socket.addEventListener('close', () => reconnect());`
	if violations := analyzeListeners(t, source, false); len(violations) != 0 {
		t.Errorf("once and addEventListener both attach listeners, got %+v", violations)
	}
}

func TestAnalyzeListeners_PartialAttachment(t *testing.T) {
	source := `import WebSocket from 'ws';
const socket = new WebSocket('wss://example.com');
socket.once('error', err => report(err));`
	violations := analyzeListeners(t, source, false)

	if len(violations) != 1 || violations[0].PostconditionID != "missing-close-listener" {
		t.Errorf("attaching the error handler leaves only the close violation, got %+v", violations)
	}
}

func TestAnalyzeListeners_RebindingTracksLastWrite(t *testing.T) {
	source := `import WebSocket from 'ws';
let socket = new WebSocket('wss://a.example.com');
socket = new WebSocket('wss://b.example.com');
socket.on('error', err => report(err));`
	violations := analyzeListeners(t, source, false)

	if len(violations) != 1 || violations[0].PostconditionID != "missing-close-listener" {
		t.Fatalf("expected only the missing close listener, got %+v", violations)
	}
	if violations[0].Line != 3 {
		t.Errorf("the violation points at the last construction site, got line %d", violations[0].Line)
	}
}

func TestAnalyzeListeners_ModuleLevelOnlySkipsFunctionBodies(t *testing.T) {
	source := `import WebSocket from 'ws';
function connect() {
  const socket = new WebSocket('wss://example.com');
  return socket;
}`
	if violations := analyzeListeners(t, source, true); len(violations) != 0 {
		t.Errorf("module-level mode ignores instances created inside functions, got %+v", violations)
	}

	violations := analyzeListeners(t, source, false)
	if len(violations) != 2 {
		t.Errorf("full mode still tracks the in-function instance, got %+v", violations)
	}
}

func TestAnalyzeListeners_UnrelatedInstancesIgnored(t *testing.T) {
	source := `import { PrismaClient } from 'prisma';
const db = new PrismaClient();
db.on('beforeExit', cleanup);`
	if violations := analyzeListeners(t, source, false); len(violations) != 0 {
		t.Errorf("contracts with no required listeners track nothing, got %+v", violations)
	}
}

func TestAnalyzeListeners_ThisPropertyInstance(t *testing.T) {
	source := `import WebSocket from 'ws';
class Client {
  connect() {
    this.socket = new WebSocket('wss://example.com');
    this.socket.on('error', err => this.report(err));
    this.socket.on('close', () => this.reconnect());
  }
}`
	if violations := analyzeListeners(t, source, false); len(violations) != 0 {
		t.Errorf("this.socket tracking should match attachments, got %+v", violations)
	}
}
