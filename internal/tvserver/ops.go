// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tvserver

// Operation names understood by the platform TV service.
const (
	OpSetCallback                   = "setCallback"
	OpStartTv                       = "startTv"
	OpStopTv                        = "stopTv"
	OpSetTunnelID                   = "setTunnelId"
	OpSwitchInputSrc                = "switchInputSrc"
	OpGetInputSrcConnectStatus      = "getInputSrcConnectStatus"
	OpGetCurrentInputSrc            = "getCurrentInputSrc"
	OpGetHdmiAvHotplugStatus        = "getHdmiAvHotplugStatus"
	OpGetSupportInputDevices        = "getSupportInputDevices"
	OpGetHdmiPorts                  = "getHdmiPorts"
	OpGetCurSignalInfo              = "getCurSignalInfo"
	OpSetMiscCfg                    = "setMiscCfg"
	OpGetMiscCfg                    = "getMiscCfg"
	OpLoadEdidData                  = "loadEdidData"
	OpUpdateEdidData                = "updateEdidData"
	OpSetHdmiEdidVersion            = "setHdmiEdidVersion"
	OpGetHdmiEdidVersion            = "getHdmiEdidVersion"
	OpSaveHdmiEdidVersion           = "saveHdmiEdidVersion"
	OpSetHdmiColorRangeMode         = "setHdmiColorRangeMode"
	OpGetHdmiColorRangeMode         = "getHdmiColorRangeMode"
	OpGetHdmiFormatInfo             = "getHdmiFormatInfo"
	OpHandleGPIO                    = "handleGPIO"
	OpVdinUpdateForPQ               = "vdinUpdateForPQ"
	OpSetWssStatus                  = "setWssStatus"
	OpSetDeviceIDForCec             = "setDeviceIdForCec"
	OpSetScreenColorForSignalChange = "setScreenColorForSignalChange"
	OpGetScreenColorForSignalChange = "getScreenColorForSignalChange"
	OpDtvGetSignalSNR               = "dtvGetSignalSNR"
	OpGetBasicVdecStatusInfo        = "getBasicVdecStatusInfo"
	OpStartTvInPIP                  = "startTvInPIP"
	OpStopTvInPIP                   = "stopTvInPIP"
	OpIsSupportPIP                  = "isSupportPIP"

	// OpRequest is the single entry point of the DTV-kit session service.
	OpRequest = "request"
)

// DTV-kit session methods.
const (
	DTVKitRequestDevice = "Dvb.requestDtvDevice"
	DTVKitReleaseDevice = "Dvb.releaseDtvDevice"
)
