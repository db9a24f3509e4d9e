package main

import "github.com/bwmarrin/discordgo"

var adminPermission int64 = discordgo.PermissionManageServer

// commands registered globally on Ready
var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "ping",
		Description: "Check the bot is alive",
	},
	{
		Name:        "roll",
		Description: "Roll a die",
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "sides",
			Description: "Number of sides (default 6)",
			MinValue:    floatPtr(2),
			MaxValue:    1000,
		}},
	},
	{
		Name:        "coinflip",
		Description: "Flip a coin",
	},
	{
		Name:        "cooldown",
		Description: "Inspect or adjust command cooldowns",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "check",
				Description: "See whether you can run a command right now",
				Options: []*discordgo.ApplicationCommandOption{
					commandOption(),
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "extend",
				Description: "Extend (or shorten) a member's cooldown (Manage Server)",
				Options: []*discordgo.ApplicationCommandOption{
					commandOption(),
					userOption(),
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "seconds", Description: "Seconds to add, negative to shorten", Required: true},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "grant",
				Description: "Give a member extra uses (Manage Server)",
				Options: []*discordgo.ApplicationCommandOption{
					commandOption(),
					userOption(),
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "uses", Description: "Uses to add, negative to take away", Required: true},
				},
			},
		},
	},
}

func commandOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "command",
		Description: "Command name, without the slash",
		Required:    true,
	}
}

func userOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: "Member to adjust",
		Required:    true,
	}
}

func floatPtr(v float64) *float64 { return &v }
