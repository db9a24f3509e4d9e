package cooldown

import "errors"

var (
	// ErrInvalidConfig is returned when a guild configuration is rejected
	ErrInvalidConfig = errors.New("invalid cooldown configuration")

	// ErrEmptyGuildID is returned when a config is created without a guild id
	ErrEmptyGuildID = errors.New("guild id cannot be empty")

	// ErrEmptyCommandName is returned for entries with an empty name
	ErrEmptyCommandName = errors.New("command name cannot be empty")

	// ErrGroupWithoutCommands is returned in strict mode for groups with no members
	ErrGroupWithoutCommands = errors.New("group declares no commands")

	// ErrNegativeUses is returned when uses is below zero
	ErrNegativeUses = errors.New("uses must not be negative")

	// ErrInvalidCoolTime is returned when coolTime is below zero and not the permanent sentinel
	ErrInvalidCoolTime = errors.New("coolTime must be >= 0, or -1 together with uses: 0")

	// ErrConfigNotFound is returned by config sources that hold nothing for a guild
	ErrConfigNotFound = errors.New("guild config not found")
)
