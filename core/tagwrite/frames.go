package tagwrite

// frameName gives the ID3v2 frame id of a canonical field per major
// version. An empty id means the version has no such frame.
type frameName struct {
	field      string
	v2, v3, v4 string
}

var frameNames = []frameName{
	{"ATTACHED_PICTURE", "PIC", "APIC", "APIC"},
	{"AUDIO_ENCRYPTION", "CRA", "AENC", "AENC"},
	{"COMMENT", "COM", "COMM", "COMM"},
	{"COMMERCIAL_FRAME", "", "COMR", "COMR"},
	{"ENCRYPTION_METHOD_REGISTRATION", "", "ENCR", "ENCR"},
	{"EVENT_TIMING_CODES", "ETC", "ETCO", "ETCO"},
	{"GENERAL_ENCAPSULATED_OBJECT", "GEO", "GEOB", "GEOB"},
	{"GROUP_IDENTIFICATION_REGISTRATION", "", "GRID", "GRID"},
	{"LINKED_INFORMATION", "LNK", "LINK", "LINK"},
	{"MUSIC_CD_IDENTIFIER", "MCI", "MCDI", "MCDI"},
	{"OWNERSHIP_FRAME", "", "OWNE", "OWNE"},
	{"PLAY_COUNTER", "CNT", "PCNT", "PCNT"},
	{"POPULARIMETER", "POP", "POPM", "POPM"},
	{"PRIVATE_FRAME", "", "PRIV", "PRIV"},
	{"TERMS_OF_USE", "", "USER", "USER"},
	{"UNIQUE_FILE_IDENTIFIER", "UFI", "UFID", "UFID"},
	{"UNSYNCHRONISED_LYRIC", "ULT", "USLT", "USLT"},
	{"UNSYNCHRONIZED_LYRIC", "ULT", "USLT", "USLT"},
	{"LYRICS", "ULT", "USLT", "USLT"},

	{"ALBUM", "TAL", "TALB", "TALB"},
	{"BPM", "TBP", "TBPM", "TBPM"},
	{"BEATS_PER_MINUTE", "TBP", "TBPM", "TBPM"},
	{"COMPOSER", "TCM", "TCOM", "TCOM"},
	{"GENRE", "TCO", "TCON", "TCON"},
	{"CONTENT_TYPE", "TCO", "TCON", "TCON"},
	{"COPYRIGHT", "TCR", "TCOP", "TCOP"},
	{"COPYRIGHT_MESSAGE", "TCR", "TCOP", "TCOP"},
	{"DATE", "TDA", "TDAT", ""},
	{"ENCODING_TIME", "", "", "TDEN"},
	{"PLAYLIST_DELAY", "TDY", "TDLY", "TDLY"},
	{"ORIGINAL_RELEASE_TIME", "", "", "TDOR"},
	{"RECORDING_TIME", "", "", "TDRC"},
	{"RELEASE_TIME", "", "", "TDRL"},
	{"TAGGING_TIME", "", "", "TDTG"},
	{"ENCODED_BY", "TEN", "TENC", "TENC"},
	{"LYRICIST", "TXT", "TEXT", "TEXT"},
	{"FILE_TYPE", "TFT", "TFLT", "TFLT"},
	{"TIME", "TIM", "TIME", ""},
	{"INVOLVED_PEOPLE_LIST", "IPL", "IPLS", "TIPL"},
	{"CONTENT_GROUP_DESCRIPTION", "TT1", "TIT1", "TIT1"},
	{"TITLE", "TT2", "TIT2", "TIT2"},
	{"SUBTITLE", "TT3", "TIT3", "TIT3"},
	{"INITIAL_KEY", "TKE", "TKEY", "TKEY"},
	{"LANGUAGE", "TLA", "TLAN", "TLAN"},
	{"LENGTH", "TLE", "TLEN", "TLEN"},
	{"MUSICIAN_CREDITS_LIST", "", "", "TMCL"},
	{"MEDIA_TYPE", "TMT", "TMED", "TMED"},
	{"MOOD", "", "", "TMOO"},
	{"ORIGINAL_ALBUM", "TOT", "TOAL", "TOAL"},
	{"ORIGINAL_FILENAME", "TOF", "TOFN", "TOFN"},
	{"ORIGINAL_LYRICIST", "TOL", "TOLY", "TOLY"},
	{"ORIGINAL_ARTIST", "TOA", "TOPE", "TOPE"},
	{"ORIGINAL_YEAR", "TOR", "TORY", "TDOR"},
	{"FILE_OWNER", "", "TOWN", "TOWN"},
	{"ARTIST", "TP1", "TPE1", "TPE1"},
	{"BAND", "TP2", "TPE2", "TPE2"},
	{"ALBUM_ARTIST", "TP2", "TPE2", "TPE2"},
	{"ALBUMARTIST", "TP2", "TPE2", "TPE2"},
	{"CONDUCTOR", "TP3", "TPE3", "TPE3"},
	{"REMIXER", "TP4", "TPE4", "TPE4"},
	{"PART_OF_A_SET", "TPA", "TPOS", "TPOS"},
	{"DISCNUMBER", "TPA", "TPOS", "TPOS"},
	{"PRODUCED_NOTICE", "", "", "TPRO"},
	{"PUBLISHER", "TPB", "TPUB", "TPUB"},
	{"TRACKNUMBER", "TRK", "TRCK", "TRCK"},
	{"TRACK_NUMBER", "TRK", "TRCK", "TRCK"},
	{"RECORDING_DATES", "TRD", "TRDA", ""},
	{"INTERNET_RADIO_STATION_NAME", "", "TRSN", "TRSN"},
	{"INTERNET_RADIO_STATION_OWNER", "", "TRSO", "TRSO"},
	{"ALBUM_SORT_ORDER", "", "", "TSOA"},
	{"PERFORMER_SORT_ORDER", "", "", "TSOP"},
	{"TITLE_SORT_ORDER", "", "", "TSOT"},
	{"ISRC", "TRC", "TSRC", "TSRC"},
	{"ENCODER_SETTINGS", "TSS", "TSSE", "TSSE"},
	{"SET_SUBTITLE", "", "", "TSST"},
	{"YEAR", "TYE", "TYER", "TDRC"},
	{"TEXT", "TXX", "TXXX", "TXXX"},
	{"USER_TEXT", "TXX", "TXXX", "TXXX"},

	{"COMMERCIAL_INFORMATION", "WCM", "WCOM", "WCOM"},
	{"COPYRIGHT_INFORMATION", "WCP", "WCOP", "WCOP"},
	{"URL_FILE", "WAF", "WOAF", "WOAF"},
	{"URL_ARTIST", "WAR", "WOAR", "WOAR"},
	{"URL_SOURCE", "WAS", "WOAS", "WOAS"},
	{"URL_STATION", "", "WORS", "WORS"},
	{"URL_PAYMENT", "", "WPAY", "WPAY"},
	{"URL_PUBLISHER", "WPB", "WPUB", "WPUB"},
	{"URL_USER", "WXX", "WXXX", "WXXX"},
}

var frameIndex = func() map[string]frameName {
	m := make(map[string]frameName, len(frameNames))
	for _, f := range frameNames {
		m[f.field] = f
	}
	return m
}()

// FrameID returns the ID3v2 frame id for a canonical field name in the given
// major version, or "" when there is none.
func FrameID(major int, field string) string {
	f, ok := frameIndex[field]
	if !ok {
		return ""
	}
	switch major {
	case 2:
		return f.v2
	case 3:
		return f.v3
	case 4:
		return f.v4
	}
	return ""
}

// frameKind folds version-specific ids onto the v2.3/v2.4 name, so that
// "PIC" and "APIC" are handled alike.
func frameKind(id string) string {
	switch id {
	case "PIC":
		return "APIC"
	case "POP":
		return "POPM"
	case "UFI":
		return "UFID"
	case "TXX":
		return "TXXX"
	case "COM":
		return "COMM"
	case "ULT":
		return "USLT"
	}
	return id
}
