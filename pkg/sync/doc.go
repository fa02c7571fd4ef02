/*
The sync package implements foldersync's one-way sync algorithm. A pass makes
the replica tree an exact copy of the source tree.

Entries in the two trees are matched by their slash-separated path relative
to their root. Files are compared by a digest of their contents, so files
that only differ in metadata aren't copied again.

Every pass runs four phases, in order:
1) Create every source directory that's missing from the replica, including
   empty ones.
2) Copy every source file that's missing from the replica, or whose contents
   differ.
3) Remove replica files that don't exist in the source.
4) Remove replica directories that don't exist in the source, along with
   their contents.

Errors that only affect one entry are recorded and the entry is skipped.
Errors that make the whole pass meaningless, such as a missing source
directory, abort the pass before anything in the replica is touched.
*/
package sync
