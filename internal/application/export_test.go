package application

var UntilNextBoundary = untilNextBoundary
