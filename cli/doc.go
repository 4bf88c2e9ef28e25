// Package cli builds the command-line surface for a chatbot: one
// executable exposing chat, web, agents and info subcommands over a
// shared engine wiring.
//
// A chatbot author fills in an App (name, version, agent registration,
// optional formatter customization) and calls Run. Global flags control
// logging verbosity; chat mode logs to a file so stdout stays reserved
// for the conversation, web mode logs to stderr.
package cli
