package event

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr"
)

// kindLabels describes the event kinds operators are likely to see in an
// approval prompt.
var kindLabels = map[int]string{
	0:    "user metadata (0)",
	1:    "short text note (1)",
	2:    "recommend relay (2)",
	3:    "follows (3)",
	4:    "encrypted direct messages (4)",
	5:    "event deletion request (5)",
	6:    "repost (6)",
	7:    "reaction (7)",
	8:    "badge award (8)",
	9:    "group chat message (9)",
	10:   "group chat threaded reply (10)",
	11:   "group thread (11)",
	12:   "group thread reply (12)",
	13:   "seal (13)",
	14:   "direct message (14)",
	16:   "generic repost (16)",
	17:   "reaction to a website (17)",
	40:   "channel creation (40)",
	41:   "channel metadata (41)",
	42:   "channel message (42)",
	43:   "channel hide message (43)",
	44:   "channel mute user (44)",
	64:   "chess (pgn) (64)",
	818:  "merge requests (818)",
	1021: "bid (1021)",
	1022: "bid confirmation (1022)",
	1040: "opentimestamps (1040)",
	1059: "gift wrap (1059)",
	1063: "file metadata (1063)",
	1311: "live chat message (1311)",
	1617: "patches (1617)",
	1621: "issues (1621)",
	1622: "replies (1622)",
	1630: "status (1630-1633)",
	1631: "status (1630-1633)",
	1632: "status (1630-1633)",
	1633: "status (1630-1633)",
	1971: "problem tracker (1971)",
	1984: "reporting (1984)",
	1985: "label (1985)",
	2003: "torrent (2003)",
	2004: "torrent comment (2004)",
	2022: "coinjoin pool (2022)",
	4550: "community post approval (4550)",
}

// KindLabel describes an event for a human approver. Notes and reactions
// include their content since that is what is being approved.
func KindLabel(evt *nostr.Event) string {
	label, ok := kindLabels[evt.Kind]
	if !ok {
		return fmt.Sprintf("unknown kind (%d)", evt.Kind)
	}
	switch evt.Kind {
	case nostr.KindTextNote:
		return fmt.Sprintf("%s - %q", label, evt.Content)
	case nostr.KindReaction:
		return fmt.Sprintf("%s - %s", label, evt.Content)
	}
	return label
}

// TaskLabel is the coordinator task name for signing evt.
func TaskLabel(evt *nostr.Event) string {
	return "Nostr " + KindLabel(evt)
}
