package consts

// Trade actions accepted in a decision payload.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// SharesAll liquidates the whole existing position.
const SharesAll = "ALL"

// EmptyDecision is returned by the conversation driver whenever it gives up.
const EmptyDecision = "{}"

// Conversation states.
const (
	State_Init           = "init"
	State_AwaitingModel  = "awaiting_model"
	State_ToolDispatch   = "tool_dispatch"
	State_Done           = "done"
	State_BudgetExceeded = "budget_exceeded"
	State_TurnLimit      = "turn_limit"
	State_ModelError     = "model_error"
)

// Per-agent cycle status.
const (
	Status_Success = "success"
	Status_Error   = "error"
)

// Date layout used by nav_history and research_logs.
const DateLayout = "2006-01-02"
