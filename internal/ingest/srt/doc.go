// Package srt receives transport streams over SRT, either as a listener
// accepting publishers (Server) or as a caller pulling from a remote
// listener (Caller). Received bytes go into the ingest registry.
package srt
