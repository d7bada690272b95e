package constants

const VERSION = "3.0.0"

const USER_AGENT = "lana/" + VERSION + " (+https://github.com/Amund211/lana)"
