package host

// Kind classifies the failures the core reports back to command handlers.
type Kind int

const (
	KindUnknown Kind = iota
	KindRequiresPlayer
	KindNoMatches
	KindAmbiguousTarget
	KindPermissionDenied
	KindInvalidCoordinates
	KindNoSuchWorld
	KindInvalidGroupToken
	KindNoTargetBlock
	KindNoFreePosition
	KindTooSoon
	KindNotBringable
	KindNoHistory
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindRequiresPlayer:     "requires player",
	KindNoMatches:          "no matches",
	KindAmbiguousTarget:    "ambiguous target",
	KindPermissionDenied:   "permission denied",
	KindInvalidCoordinates: "invalid coordinates",
	KindNoSuchWorld:        "no such world",
	KindInvalidGroupToken:  "invalid group token",
	KindNoTargetBlock:      "no target block",
	KindNoFreePosition:     "no free position",
	KindTooSoon:            "too soon",
	KindNotBringable:       "not bringable",
	KindNoHistory:          "no history",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Error is a user-facing failure. Message is shown to the actor verbatim.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind so callers can compare against the
// sentinels below regardless of the message text.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Errorf builds an error of the given kind with a custom message.
func Errorf(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	ErrRequiresPlayer     = &Error{Kind: KindRequiresPlayer, Message: "A player context is required. (Specify a world or player if the command supports it.)"}
	ErrNoMatches          = &Error{Kind: KindNoMatches, Message: "No players matched query."}
	ErrAmbiguousTarget    = &Error{Kind: KindAmbiguousTarget, Message: "More than one player found! Use @<name> for exact matching."}
	ErrPermissionDenied   = &Error{Kind: KindPermissionDenied, Message: "You don't have permission."}
	ErrInvalidCoordinates = &Error{Kind: KindInvalidCoordinates, Message: "Coordinates expected numbers!"}
	ErrNoSuchWorld        = &Error{Kind: KindNoSuchWorld, Message: "No world by that exact name found."}
	ErrInvalidGroupToken  = &Error{Kind: KindInvalidGroupToken, Message: "Invalid group."}
	ErrNoTargetBlock      = &Error{Kind: KindNoTargetBlock, Message: "Failed to find a block in your target!"}
	ErrNoFreePosition     = &Error{Kind: KindNoFreePosition, Message: "No free position above that block."}
	ErrTooSoon            = &Error{Kind: KindTooSoon, Message: "Wait a bit before asking again."}
	ErrNotBringable       = &Error{Kind: KindNotBringable, Message: "That person didn't request a teleport (recently) and you don't have permission to teleport anyone."}
	ErrNoHistory          = &Error{Kind: KindNoHistory, Message: "There's no past location in your history."}
)

// KindOf extracts the kind of a core error, or KindUnknown.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return KindUnknown
}
