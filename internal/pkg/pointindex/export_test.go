package pointindex

// HasRoom exposes the capacity check to the external tests.
var HasRoom = hasRoom
