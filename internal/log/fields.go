package log

// Attribute keys
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldQuery        = "query"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldReferer      = "referer"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldErrorType    = "error_type"
	FieldOperation    = "operation"
	FieldSessionID    = "session_id"
	FieldUserID       = "user_id"
	FieldResource     = "resource"
	FieldSeq          = "seq"
	FieldAction       = "action"
	FieldActivityID   = "activity_id"
	FieldActivityKind = "activity_kind"
)

// Values for FieldComponent
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentAuth      = "auth"
	ComponentSession   = "session"
	ComponentView      = "view"
	ComponentStorage   = "storage"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentJournal   = "journal"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTemplate  = "template"
)

// Values for FieldOperation
const (
	OpCreate   = "create"
	OpDelete   = "delete"
	OpFetch    = "fetch"
	OpValidate = "validate"
	OpRender   = "render"
	OpSignIn   = "sign_in"
	OpSignOut  = "sign_out"
	OpShutdown = "shutdown"
)

// Values for FieldErrorType
const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeDatabase   = "database_error"
	ErrorTypeNetwork    = "network_error"
	ErrorTypeRemote     = "remote_rejected"
	ErrorTypeAuth       = "auth_error"
	ErrorTypeNotReady   = "not_ready"
	ErrorTypeInternal   = "internal_error"
)

// LogFields accumulates attributes for one log line. Keys are unique, so a
// later With overwrites an earlier one.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError records err.Error(); a nil err adds nothing.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(kind string) LogFields {
	f[FieldErrorType] = kind
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSession adds the session and user identifiers
func (f LogFields) WithSession(sessionID, userID string) LogFields {
	f[FieldSessionID] = sessionID
	f[FieldUserID] = userID
	return f
}

// WithFetch adds resource fetch fields
func (f LogFields) WithFetch(resource string, seq uint64) LogFields {
	f[FieldResource] = resource
	f[FieldSeq] = seq
	return f
}

// WithAction names the mutating action
func (f LogFields) WithAction(action string) LogFields {
	f[FieldAction] = action
	return f
}

// WithActivity adds journal record fields
func (f LogFields) WithActivity(id, kind string) LogFields {
	f[FieldActivityID] = id
	f[FieldActivityKind] = kind
	return f
}

// WithHTTPRequest omits empty user agent and referer.
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	if referer != "" {
		f[FieldReferer] = referer
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

func (f LogFields) With(key string, value any) LogFields {
	f[key] = value
	return f
}

// ToSlice flattens f into slog key/value arguments. Order is unspecified.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
