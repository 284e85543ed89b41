package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/snipstash/snipstash-server/internal/domain"
)

const timeLayout = "2006-01-02 15:04"

func printList(w io.Writer, recs []*domain.Snippet, total int, hasMore bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tLANGUAGES\tCATEGORIES\tFLAGS\tUPDATED")
	for _, sn := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			sn.ID,
			truncate(sn.Title, 40),
			strings.Join(sn.Languages(), ","),
			strings.Join(sn.Categories, ","),
			flags(sn),
			sn.UpdatedAt.Local().Format(timeLayout))
	}
	_ = tw.Flush()

	more := ""
	if hasMore {
		more = " (more available, use --all)"
	}
	fmt.Fprintf(w, "\n%d of %d%s\n", len(recs), total, more)
}

func flags(sn *domain.Snippet) string {
	var f []string
	if sn.IsPinned {
		f = append(f, "pinned")
	}
	if sn.IsFavorite {
		f = append(f, "fav")
	}
	if sn.IsPublic {
		f = append(f, "public")
	}
	if sn.ExpiryDate != nil {
		f = append(f, "expires "+sn.ExpiryDate.Local().Format(timeLayout))
	}
	return strings.Join(f, ",")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func printSnippet(w io.Writer, sn *domain.Snippet) {
	fmt.Fprintf(w, "%s  %s\n", sn.ID, sn.Title)
	if sn.Description != "" {
		fmt.Fprintf(w, "%s\n", sn.Description)
	}
	if len(sn.Categories) > 0 {
		fmt.Fprintf(w, "categories: %s\n", strings.Join(sn.Categories, ", "))
	}
	if f := flags(sn); f != "" {
		fmt.Fprintf(w, "flags: %s\n", f)
	}
	fmt.Fprintf(w, "updated: %s\n", sn.UpdatedAt.Local().Format(timeLayout))
	for _, fr := range sn.Fragments {
		fmt.Fprintf(w, "\n--- %s (%s) [%s]\n", fr.FileName, fr.Language, fr.ID)
		fmt.Fprint(w, fr.Code)
		if !strings.HasSuffix(fr.Code, "\n") {
			fmt.Fprintln(w)
		}
	}
}
