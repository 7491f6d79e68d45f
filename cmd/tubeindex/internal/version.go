package internal

// Version is the tubeindex release.
const Version = "0.3.0"
