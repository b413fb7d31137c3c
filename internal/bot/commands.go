package bot

import telebot "gopkg.in/telebot.v3"

// CommandStart registers the sender and greets them.
const CommandStart = "/start"

// Commands is the command list published to Telegram during registration.
var Commands = []telebot.Command{
	{Text: "start", Description: "Start using the bot"},
}
