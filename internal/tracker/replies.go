// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package tracker

import (
	"fmt"
	"strings"

	"go.astrophena.name/megazu/internal/ledger"
)

// pick returns the word of a reply that fits kind.
func pick(kind ledger.Kind, fitness, shipping, mindfulness string) string {
	switch kind {
	case ledger.Shipping:
		return shipping
	case ledger.Mindfulness:
		return mindfulness
	}
	return fitness
}

func privatePhotoText(kind ledger.Kind) string {
	return fmt.Sprintf("Whoa there, solo %s! 🐺 Add me to your crew (group) to start the ultimate %s party!",
		pick(kind, "athlete", "coder", "zen seeker"),
		pick(kind, "fitness", "shipping", "mindfulness"))
}

func missingIDText(kind ledger.Kind) string {
	return fmt.Sprintf("Oops! Our %s malfunctioned. 🔧 Give it a quick rest and try %s again!",
		pick(kind, "fit-o-meter", "ship-o-meter", "zen-o-meter"),
		pick(kind, "flexing", "shipping", "finding your center"))
}

func busyText(kind ledger.Kind) string {
	return fmt.Sprintf("Easy there, turbo %s! 🧘‍♂️💨 We're still processing your last %s. Give us a sec to find our balance!",
		pick(kind, "athlete", "shipper", "zen seeker"),
		pick(kind, "rep", "commit", "moment of zen"))
}

func alreadyLoggedText(kind ledger.Kind, name string) string {
	return fmt.Sprintf("Whoa, %s! 🏆 You've already logged your daily %s activity. Save some amazement for tomorrow, you %s!",
		name, kind, pick(kind, "beast", "beast", "enlightened being"))
}

func limitText(kind ledger.Kind, name string) string {
	return fmt.Sprintf("Hold up, %s! 🛑 You've hit your daily attempt limit. Time to rest those %s and come back more %s tomorrow! %s",
		name,
		pick(kind, "muscles", "fingers", "thoughts"),
		pick(kind, "energized", "productive", "centered"),
		pick(kind, "💪😴", "⌨️😴", "🧘‍♂️😴"))
}

func failedText(kind ledger.Kind) string {
	return fmt.Sprintf("Oof! 😅 Looks like our bot's %s routine hit a snag. Let's take a quick break and try that again!",
		pick(kind, "workout", "code", "zen"))
}

func mentionCreditText(names []string) string {
	verb := "is"
	if len(names) > 1 {
		verb = "are"
	}
	return fmt.Sprintf("\n\nLook at you, spreading the zen! %s %s now part of your mindfulness circle! 🧘‍♂️🧘‍♀️",
		strings.Join(names, ", "), verb)
}

const (
	startPrivateText = "Hey there, wellness champion! 🏋️‍♂️👨‍💻🧘‍♂️ I'm the MegaZu activity tracker. " +
		"Add me to your group and share your progress pics! Here's how:\n\n" +
		"1️⃣ Take a photo of your workout, coding progress, or mindfulness practice\n" +
		"2️⃣ Add '/pumped' for gym pics, '/shipped' for coding pics, or '/zenned' for mindfulness pics in the caption\n" +
		"3️⃣ Send it to the group\n\n" +
		"Let's showcase those epic gains, ships, and zen moments! 💪📸🚢🧘‍♂️"
	startGroupText = "MegaZu trackers, get ready to flex those muscles, ship that code, and find your zen! 🦸‍♂️🦸‍♀️ " +
		"Your friendly neighborhood Progress Guardian is here!\n\n" +
		"To show off your progress:\n" +
		"1️⃣ Snap a pic of your workout, coding, or mindfulness practice\n" +
		"2️⃣ Include '/pumped' for gym pics, '/shipped' for coding pics, or '/zenned' for mindfulness pics in the caption\n" +
		"3️⃣ Share it with the group\n\n" +
		"Let's see those gains, ships, and zen moments! 💪🖥️🚢🧘‍♂️"
)

// board describes a leaderboard.
type board struct {
	title   string
	unit    string
	private string
	empty   string
	failed  string
}

var boards = map[ledger.Kind]board{
	ledger.Fitness: {
		title:   "🏆 MegaZu Fitness Hall of Fame 🏆",
		unit:    "epic workouts",
		private: "Hey fitness champion, this is a team sport! 🏆 Use this command in your MegaZu group to see who's the ultimate fitness guru!",
		empty:   "No workouts logged yet? Time to get moving, MegaZu athletes! 💪🏋️‍♀️",
		failed:  "Oops! Our ranking board is doing extra reps. 🏋️‍♀️ Give it a moment to cool down and try again!",
	},
	ledger.Shipping: {
		title:   "🚢 MegaZu Shipping Hall of Fame 🚢",
		unit:    "epic ships",
		private: "Hey code shipper, this is a team effort! 🚢 Use this command in your MegaZu group to see who's the ultimate shipping champion!",
		empty:   "No ships launched yet? Time to start coding and shipping, MegaZu developers! 👩‍💻🚀",
		failed:  "Oops! Our ranking board is experiencing a bug. 🐛 Give it a moment to deploy a fix and try again!",
	},
	ledger.Mindfulness: {
		title:   "🧘 MegaZu Mindfulness Hall of Zen 🧘",
		unit:    "zen moment(s)",
		private: "Hey mindfulness guru, this is a group journey! 🧘‍♂️ Use this command in your MegaZu group to see who's the ultimate zen master!",
		empty:   "No zen moments logged yet? Time to start finding your inner peace, MegaZu mindfulness seekers! 🧘‍♂️✨",
		failed:  "Oops! Our zen-o-meter is experiencing a moment of chaos. 🌪️ Take a deep breath, and we'll try again soon!",
	},
}

var placements = []string{"🥇", "🥈", "🥉", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}

func placementEmoji(i int) string {
	if i >= 0 && i < len(placements) {
		return placements[i]
	}
	return "🏅"
}

func (b board) render(standings []ledger.Standing) string {
	if len(standings) == 0 {
		return b.empty
	}
	var sb strings.Builder
	sb.WriteString(b.title + "\n\n")
	for i, s := range standings {
		fmt.Fprintf(&sb, "%s %s: %d %s\n", placementEmoji(i), s.Username, s.Count, b.unit)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

const (
	bezenPrivateText = "Hey there, zen seeker! 🧘‍♂️ Add me to a group to start your mindfulness journey with friends!"
	bezenMissingText = "Oops! Something went wrong. Please try again later."
	bezenFailedText  = "Oops! Our zen master stumbled. Please try again later."
)

func bezenWelcomeText(name string) string {
	return fmt.Sprintf("Welcome to the zen circle, %s! 🧘‍♂️✨ You're now ready to log your mindfulness moments with /zenned.", name)
}

func bezenExistingText(name string) string {
	return fmt.Sprintf("You're already on the path to enlightenment, %s! 🌟 Keep using /zenned to log your mindfulness moments.", name)
}

const (
	roastNoReplyText  = "*sigh* You need to reply to a photo to summon my roasting powers! I don't have time for this... 🙄"
	roastNoPhotoText  = "Look, I'm already overworked. I only roast PHOTOS, okay? 😮‍💨"
	roastPrivateText  = "*drowsy eye roll* Add me to a group chat. I need an audience for my art... 😴"
	roastMissingText  = "Ugh, technical difficulties. Just like my dating life... 🤦"
	roastFailedText   = "Ugh, my roasting powers are on PTO right now. Try again later... 😮‍💨"
	defaultRoaster    = "mystery roaster"
	defaultRoastee    = "mystery human"
	defaultStoredName = "Anonymous"
)

func roastCapText(roaster string) string {
	return fmt.Sprintf("Listen %s, I've roasted enough for you today. Go ship some code, hit the gym, or find your zen! I need a break! 😮‍💨", roaster)
}

func roastPhotoSenderText(target, roast string) string {
	return fmt.Sprintf("*adjusts glasses tiredly* %s, %s", target, roast)
}

func roastInvokerText(roaster, roast string) string {
	return fmt.Sprintf("*yawns* Oh %s, %s", roaster, roast)
}
