// Package blame runs `git blame --porcelain` and parses its output into a
// table of annotated lines that share commit objects from a commit.Store.
//
// The porcelain stream is a sequence of groups. Each group starts with a
// header naming the commit and the original and final line numbers,
// followed by property lines ("author Jane", "summary ...") the first time
// a commit appears, and ends with the line text prefixed by a tab.
package blame
