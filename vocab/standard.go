package vocab

// standard is the built-in vocabulary that shipped with the voice
// assistant.  Use Standard() to get a copy.
var standard = Map{
	"serviceName": {
		"google slides",
		"slides",
		"google docs",
		"google scholar",
		"calendar",
		"google calendar",
		"google drive",
		"google sheets",
		"sheets",
		"spreadsheets",
		"goodreads",
		"mdn",
		"coursera",
		"gmail",
		"mail",
		"email",
		"google mail",
		"amazon",
		"wikipedia",
		"wiki",
		"yelp",
		"twitter",
		"reddit",
		"amazon music",
		"google music",
		"google play music",
		"pandora",
		"soundcloud",
		"sound cloud",
		"tunein",
		"tune in",
		"tunein radio",
		"tune in radio",
		"vimeo",
		"netflix",
		"apple maps",
		"google maps",
		"maps",
		"open street maps",
		"open maps",
		"stubhub",
		"stub hub",
		"ticketmaster",
		"ticket master",
		"google translate",
		"translate",
		"instagram",
		"insta",
		"linkedin",
		"quora",
		"pinterest",
		"pin",
		"facebook",
		"stackexchange",
		"stack exchange",
		"dropbox",
		"dictionary.com",
		"dictionary",
		"thesaurus",
		"duckduckgo",
		"duck duck go",
		"duckduckgo images",
		"duck duck go images",
		"google images",
		"images",
	},
	"musicServiceName": {"youtube", "spotify", "video"},
	"lang": {
		"czech", "danish", "dutch", "english", "finnish", "french", "german", "hungarian",
		"italian", "norwegian", "polish", "portuguese", "romanian", "russian", "slovak",
		"slovenian", "spanish", "swedish", "turkish", "ukrainian",
	},
	"smallNumber": {
		"1", "2", "3", "4", "5", "6", "7", "8", "9",
		"one", "two", "three", "four", "five", "six",
		"seven", "eight", "nine",
	},
}

// Standard returns a fresh copy of the built-in vocabulary.
func Standard() Map {
	return standard.Copy()
}
