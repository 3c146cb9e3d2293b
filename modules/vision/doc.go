// Package vision provides computer vision kinds. Processing runs on a
// worker so frame delivery never waits on image work.
package vision
