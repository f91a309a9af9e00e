package ytdlp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ExtractorArgs maps extractor name -> argument key -> values, matching the
// backend's --extractor-args structure.
type ExtractorArgs map[string]map[string][]string

// Options is the typed backend configuration. A zero value means "backend
// default"; Merge treats zero fields as absent.
type Options struct {
	Format              string
	FormatSort          []string
	OutputTemplate      string
	MergeOutputFormat   string
	ExtractorArgs       ExtractorArgs
	Proxy               string
	CookiesFile         string
	UserAgent           string
	AcceptLanguage      string
	SocketTimeout       int
	Retries             int
	FragmentRetries     int
	FileAccessRetries   int
	ConcurrentFragments int
	ExternalDownloader  string
	DownloaderArgs      []string
	LimitRate           string
	FlatPlaylist        bool
	PlaylistEnd         int
}

// Merge overlays o2 onto o. Scalar fields from o2 win when set; base-only
// fields are kept. ExtractorArgs are merged key-by-key per extractor so a
// narrow override (say, a single player_client list) does not drop
// credentials configured only on the base.
func (o Options) Merge(o2 Options) Options {
	out := o

	if o2.Format != "" {
		out.Format = o2.Format
	}
	if len(o2.FormatSort) > 0 {
		out.FormatSort = o2.FormatSort
	}
	if o2.OutputTemplate != "" {
		out.OutputTemplate = o2.OutputTemplate
	}
	if o2.MergeOutputFormat != "" {
		out.MergeOutputFormat = o2.MergeOutputFormat
	}
	if o2.Proxy != "" {
		out.Proxy = o2.Proxy
	}
	if o2.CookiesFile != "" {
		out.CookiesFile = o2.CookiesFile
	}
	if o2.UserAgent != "" {
		out.UserAgent = o2.UserAgent
	}
	if o2.AcceptLanguage != "" {
		out.AcceptLanguage = o2.AcceptLanguage
	}
	if o2.SocketTimeout != 0 {
		out.SocketTimeout = o2.SocketTimeout
	}
	if o2.Retries != 0 {
		out.Retries = o2.Retries
	}
	if o2.FragmentRetries != 0 {
		out.FragmentRetries = o2.FragmentRetries
	}
	if o2.FileAccessRetries != 0 {
		out.FileAccessRetries = o2.FileAccessRetries
	}
	if o2.ConcurrentFragments != 0 {
		out.ConcurrentFragments = o2.ConcurrentFragments
	}
	if o2.ExternalDownloader != "" {
		out.ExternalDownloader = o2.ExternalDownloader
	}
	if len(o2.DownloaderArgs) > 0 {
		out.DownloaderArgs = o2.DownloaderArgs
	}
	if o2.LimitRate != "" {
		out.LimitRate = o2.LimitRate
	}
	if o2.FlatPlaylist {
		out.FlatPlaylist = true
	}
	if o2.PlaylistEnd != 0 {
		out.PlaylistEnd = o2.PlaylistEnd
	}

	out.ExtractorArgs = mergeExtractorArgs(o.ExtractorArgs, o2.ExtractorArgs)
	return out
}

func mergeExtractorArgs(base, override ExtractorArgs) ExtractorArgs {
	if base == nil && override == nil {
		return nil
	}
	merged := make(ExtractorArgs, len(base)+len(override))
	for site, args := range base {
		inner := make(map[string][]string, len(args))
		for k, v := range args {
			inner[k] = append([]string(nil), v...)
		}
		merged[site] = inner
	}
	for site, args := range override {
		inner, ok := merged[site]
		if !ok {
			inner = make(map[string][]string, len(args))
			merged[site] = inner
		}
		for k, v := range args {
			inner[k] = append([]string(nil), v...)
		}
	}
	return merged
}

// Args renders the options as backend CLI arguments.
func (o Options) Args() []string {
	var args []string

	if o.Format != "" {
		args = append(args, "-f", o.Format)
	}
	if len(o.FormatSort) > 0 {
		args = append(args, "-S", strings.Join(o.FormatSort, ","))
	}
	if o.OutputTemplate != "" {
		args = append(args, "-o", o.OutputTemplate)
	}
	if o.MergeOutputFormat != "" {
		args = append(args, "--merge-output-format", o.MergeOutputFormat)
	}
	for _, spec := range renderExtractorArgs(o.ExtractorArgs) {
		args = append(args, "--extractor-args", spec)
	}
	if o.Proxy != "" {
		args = append(args, "--proxy", o.Proxy)
	}
	if o.CookiesFile != "" {
		args = append(args, "--cookies", o.CookiesFile)
	}
	if o.UserAgent != "" {
		args = append(args, "--user-agent", o.UserAgent)
	}
	if o.AcceptLanguage != "" {
		args = append(args, "--add-headers", "Accept-Language:"+o.AcceptLanguage)
	}
	if o.SocketTimeout > 0 {
		args = append(args, "--socket-timeout", strconv.Itoa(o.SocketTimeout))
	}
	if o.Retries > 0 {
		args = append(args, "--retries", strconv.Itoa(o.Retries))
	}
	if o.FragmentRetries > 0 {
		args = append(args, "--fragment-retries", strconv.Itoa(o.FragmentRetries))
	}
	if o.FileAccessRetries > 0 {
		args = append(args, "--file-access-retries", strconv.Itoa(o.FileAccessRetries))
	}
	if o.ConcurrentFragments > 0 {
		args = append(args, "-N", strconv.Itoa(o.ConcurrentFragments))
	}
	if o.ExternalDownloader != "" {
		args = append(args, "--downloader", o.ExternalDownloader)
		if len(o.DownloaderArgs) > 0 {
			args = append(args,
				"--downloader-args",
				fmt.Sprintf("%s:%s", o.ExternalDownloader, strings.Join(o.DownloaderArgs, " ")))
		}
	}
	if o.LimitRate != "" {
		args = append(args, "--limit-rate", o.LimitRate)
	}
	if o.FlatPlaylist {
		args = append(args, "--flat-playlist")
	}
	if o.PlaylistEnd > 0 {
		args = append(args, "--playlist-end", strconv.Itoa(o.PlaylistEnd))
	}

	return args
}

// renderExtractorArgs produces one "site:key=v1,v2;key2=v" spec per extractor,
// with keys sorted for deterministic command lines.
func renderExtractorArgs(ea ExtractorArgs) []string {
	if len(ea) == 0 {
		return nil
	}
	sites := make([]string, 0, len(ea))
	for site := range ea {
		sites = append(sites, site)
	}
	sort.Strings(sites)

	specs := make([]string, 0, len(sites))
	for _, site := range sites {
		args := ea[site]
		keys := make([]string, 0, len(args))
		for k := range args {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if len(args[k]) == 0 {
				continue
			}
			parts = append(parts, k+"="+strings.Join(args[k], ","))
		}
		if len(parts) == 0 {
			continue
		}
		specs = append(specs, site+":"+strings.Join(parts, ";"))
	}
	return specs
}
