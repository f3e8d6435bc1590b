// Package cli provides the interactive finsync command-line client.
//
// The REPL reads one command per line. Data commands work offline against
// the local store; account and sync commands talk to the server through
// the account service and the sync engine.
//
//	register | login | logout          account
//	status | sync | pull [force] | push
//	profiles | use <profileId>
//	list [collection] | add <kind> | delete <collection> <id>
//	pay <bill|debt> <id> | undo | redo
//	backup | restore [key]
//	exit | quit
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
