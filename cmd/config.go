package cmd

const DESCRIPTION = `
ytipfs downloads media through yt-dlp, pins it to IPFS via Pinata
and keeps watch over the session cookies the downloader depends on.
It runs either as a long-lived relay worker or as a one-shot
cookie expiry check suitable for cron.
`

const (
	CheckDescription = `The check command parses the configured Netscape cookie
store, reports every cookie's remaining lifetime and exits
with 0 (healthy), 1 (expiring soon) or 2 (expired or
unreadable store) for the calling scheduler.

Example:
        ytipfs check -f /data/cookies.txt

`
	ServeDescription = `The serve command runs the relay worker: an HTTP service
that downloads media with yt-dlp, pins it to Pinata and
re-checks the cookie store on a cron schedule.

Example:
        ytipfs serve -p 8080

`
	PinDescription = `The pin command downloads a single URL and pins it to
Pinata from the terminal, with a progress bar.

Example:
        ytipfs pin https://youtube.com/watch?v=xyz

`
	AuthDescription = `The auth command stores the Pinata JWT in the operating
system keyring so it does not have to live in the
environment or a configuration file.

Example:
        ytipfs auth --token <jwt>

`
	ListDescription = `The list command displays the history of successful pins
with their CIDs, sizes and source URLs.

Example:
        ytipfs list

`
	FlushDescription = `The flush command deletes the pin history for the current
user. Pinned content on IPFS is not touched.

Example:
        ytipfs flush

`
)
